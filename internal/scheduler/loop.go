// Package scheduler runs the dispatch loop over an expanded schedule table.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"boomyouup/internal/clock"
	"boomyouup/internal/eventbus"
	"boomyouup/internal/observability/metrics"
	"boomyouup/internal/schedule"
	logx "boomyouup/pkg/logx"
)

// ErrClockUnavailable is returned by Run when the clock yields no usable
// reading; no wait can be computed without one.
var ErrClockUnavailable = errors.New("scheduler: wall clock unavailable")

const halfDay = clock.Day / 2

// Dispatcher starts an action without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, slot clock.Time, a schedule.Action) string
}

type State int

const (
	StateIdle State = iota
	StateWaiting
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateFiring:
		return "firing"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time view of a Loop.
type Snapshot struct {
	State    State
	Pointer  int
	NextSlot clock.Time
	NextAt   time.Time
	Slots    int
	Fired    uint64
	Missed   uint64
}

type Option func(*Loop)

func WithClock(c clock.Clock) Option        { return func(l *Loop) { l.clk = c } }
func WithLogger(log logx.Logger) Option     { return func(l *Loop) { l.log = log } }
func WithBus(b eventbus.Bus) Option         { return func(l *Loop) { l.bus = b } }
func WithMetrics(m *metrics.Metrics) Option { return func(l *Loop) { l.metrics = m } }

// WithResync splits long waits into chunks of at most d and re-reads the
// wall clock after each one. It also bounds how late a slot may fire
// before the loop re-seeks from the current time instead. Zero disables both.
func WithResync(d time.Duration) Option { return func(l *Loop) { l.resync = d } }

// Loop fires the slots of a read-only table in ring order, forever.
type Loop struct {
	table   *schedule.Table
	disp    Dispatcher
	clk     clock.Clock
	log     logx.Logger
	bus     eventbus.Bus
	metrics *metrics.Metrics
	resync  time.Duration

	mu      sync.Mutex
	state   State
	pointer int
	nextAt  time.Time
	fired   uint64
	missed  uint64
}

// New returns a loop over table. The table must not be modified afterwards.
func New(table *schedule.Table, d Dispatcher, opts ...Option) (*Loop, error) {
	if table == nil || table.Len() == 0 {
		return nil, schedule.ErrEmptyTable
	}
	if d == nil {
		return nil, errors.New("scheduler: nil dispatcher")
	}
	l := &Loop{table: table, disp: d}
	for _, o := range opts {
		o(l)
	}
	if l.clk == nil {
		l.clk = clock.Real()
	}
	if l.log.IsZero() {
		l.log = logx.Nop()
	}
	if l.bus == nil {
		l.bus = eventbus.Nop()
	}
	if l.resync < 0 {
		l.resync = 0
	}
	l.log = l.log.With(logx.String("comp", "scheduler"))
	return l, nil
}

// Run blocks until ctx is done or the clock fails. Action failures never
// end it.
func (l *Loop) Run(ctx context.Context) error {
	now, err := l.now()
	if err != nil {
		return err
	}
	p := l.seek(now)
	l.metrics.ScheduleLoaded(l.table.Len())
	l.log.Info("dispatch loop started",
		logx.Int("slots", l.table.Len()),
		logx.String("first", l.table.At(p).Time.String()),
		logx.Duration("resync", l.resync),
	)
	defer l.setState(StateIdle, p, time.Time{})

	for {
		e := l.table.At(p)
		if err := l.wait(ctx, p, e.Time); err != nil {
			return err
		}

		now, err := l.now()
		if err != nil {
			return err
		}
		if late := lateness(e.Time, now); l.resync > 0 && late > l.resync {
			p = l.reseek(now, p, late)
			continue
		}

		l.fire(ctx, p, e)
		p = l.table.Next(p)
	}
}

// Snapshot reports the current state of the loop.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		State:    l.state,
		Pointer:  l.pointer,
		NextSlot: l.table.At(l.pointer).Time,
		NextAt:   l.nextAt,
		Slots:    l.table.Len(),
		Fired:    l.fired,
		Missed:   l.missed,
	}
}

// seek picks the first slot still ahead of now. A slot equal to the current
// second has already passed.
func (l *Loop) seek(now time.Time) int {
	cur := clock.Of(now)
	p := l.table.FirstAtOrAfter(cur)
	if l.table.At(p).Time == cur {
		p = l.table.Next(p)
	}
	return p
}

// wait blocks until target comes up on the wall clock. Timers run on the
// monotonic clock, so every wake re-reads the wall clock: a reading still
// short of target waits out the remainder.
func (l *Loop) wait(ctx context.Context, p int, target clock.Time) error {
	expected := time.Duration(-1)
	for {
		now, err := l.now()
		if err != nil {
			return err
		}
		d := clock.DurationUntil(target, now)
		switch {
		case expected == 0 && d > halfDay:
			// At or just past target.
			return nil
		case expected > 0 && d > expected+halfDay:
			// Wall clock jumped past the target during the last chunk.
			l.log.Info("clock moved past slot, firing now", logx.Stringer("slot", target))
			return nil
		case expected == 0:
			l.log.Trace("timer woke before slot, waiting again", logx.Stringer("slot", target), logx.Duration("in", d))
		case expected < 0:
			l.setState(StateWaiting, p, now.Add(d))
			l.metrics.Waiting(d)
			l.log.Debug("waiting for slot", logx.Stringer("slot", target), logx.Duration("in", d))
		}

		chunk := d
		if l.resync > 0 && chunk > l.resync {
			chunk = l.resync
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clk.After(chunk):
		}
		expected = d - chunk
	}
}

func (l *Loop) fire(ctx context.Context, p int, e schedule.Entry) {
	l.setState(StateFiring, p, time.Time{})
	l.log.Info("slot fired", logx.String("slot", e.Time.String()), logx.Int("actions", len(e.Actions)))
	for _, a := range e.Actions {
		l.disp.Dispatch(ctx, e.Time, a)
	}
	l.mu.Lock()
	l.fired++
	l.mu.Unlock()
	l.metrics.SlotFired()
	l.bus.Publish(eventbus.Event{Type: eventbus.SlotFired, Time: l.clk.Now(), Data: e.Time})
}

// reseek moves the pointer after a late wake-up. Every slot from p up to the new
// pointer is skipped.
func (l *Loop) reseek(now time.Time, p int, late time.Duration) int {
	np := l.seek(now)
	n := l.table.Len()
	skipped := (np - p + n) % n
	if skipped == 0 {
		skipped = n
	}
	slots := make([]string, 0, skipped)
	for i, j := 0, p; i < skipped; i, j = i+1, l.table.Next(j) {
		slots = append(slots, l.table.At(j).Time.String())
	}
	l.mu.Lock()
	l.missed += uint64(skipped)
	l.mu.Unlock()
	l.metrics.SlotsMissed(skipped)
	l.bus.Publish(eventbus.Event{Type: eventbus.SlotsMissed, Time: now, Data: slots})
	l.log.Warn("woke up late, skipping missed slots",
		logx.Duration("late", late),
		logx.Int("skipped", skipped),
		logx.Any("slots", slots),
		logx.String("resume", l.table.At(np).Time.String()),
	)
	return np
}

func (l *Loop) now() (time.Time, error) {
	now := l.clk.Now()
	if now.IsZero() {
		return time.Time{}, ErrClockUnavailable
	}
	return now, nil
}

func (l *Loop) setState(s State, p int, nextAt time.Time) {
	l.mu.Lock()
	l.state = s
	l.pointer = p
	l.nextAt = nextAt
	l.mu.Unlock()
}

// lateness is how far now is past target on the ring. Readings just
// before target count as on time.
func lateness(target clock.Time, now time.Time) time.Duration {
	late := clock.Day - clock.DurationUntil(target, now)
	if late > halfDay {
		return 0
	}
	return late
}
