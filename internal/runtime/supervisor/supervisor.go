package supervisor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	logx "boomyouup/pkg/logx"
)

// Supervisor manages goroutines tied to a shared context.
// - Named goroutines (stats are aggregated per name)
// - Panic recovery
// - Optional cancel-on-first-error
// - Timeout-aware waiting
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	started uint64
	active  int64
	panics  uint64

	log         logx.Logger
	cancelOnErr bool
	errOnce     sync.Once
	firstErr    atomic.Value // stores error
	doneOnce    sync.Once
	doneCh      chan struct{}
	wg          sync.WaitGroup

	mu    sync.Mutex
	stats map[string]*GoroutineStats
}

type SupervisorOption func(*Supervisor)

// SupervisorCounters exposes best-effort goroutine counters.
type SupervisorCounters struct {
	Active  int64  `json:"active"`
	Started uint64 `json:"started"`
	Panics  uint64 `json:"panics"`
}

// GoroutineStats aggregates every goroutine started under one name.
type GoroutineStats struct {
	Name        string        `json:"name"`
	Active      int64         `json:"active"`
	Started     uint64        `json:"started"`
	Panics      uint64        `json:"panics"`
	Failures    uint64        `json:"failures"`
	LastStartAt time.Time     `json:"last_start_at"`
	LastErr     string        `json:"last_err,omitempty"`
	LastRuntime time.Duration `json:"last_runtime"`
}

func WithLogger(log logx.Logger) SupervisorOption {
	return func(s *Supervisor) { s.log = log }
}

// If enabled, the first non-nil error from any goroutine will cancel the supervisor context.
func WithCancelOnError(enabled bool) SupervisorOption {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func NewSupervisor(parent context.Context, opts ...SupervisorOption) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan struct{}),
		stats:  map[string]*GoroutineStats{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel cancels the supervisor context without waiting for goroutines to exit.
func (s *Supervisor) Cancel() { s.cancel() }

func (s *Supervisor) Err() error {
	v := s.firstErr.Load()
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}

func (s *Supervisor) Counters() SupervisorCounters {
	if s == nil {
		return SupervisorCounters{}
	}
	return SupervisorCounters{
		Active:  atomic.LoadInt64(&s.active),
		Started: atomic.LoadUint64(&s.started),
		Panics:  atomic.LoadUint64(&s.panics),
	}
}

// Stats returns per-name stats, busiest first.
func (s *Supervisor) Stats() []GoroutineStats {
	s.mu.Lock()
	out := make([]GoroutineStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active > out[j].Active
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Supervisor) statLocked(name string) *GoroutineStats {
	st := s.stats[name]
	if st == nil {
		st = &GoroutineStats{Name: name}
		s.stats[name] = st
	}
	return st
}

func (s *Supervisor) noteStart(name string) time.Time {
	now := time.Now()
	s.mu.Lock()
	st := s.statLocked(name)
	st.Started++
	st.Active++
	st.LastStartAt = now
	s.mu.Unlock()
	return now
}

func (s *Supervisor) noteStop(name string, startedAt time.Time, err error, panicked bool) {
	s.mu.Lock()
	st := s.statLocked(name)
	if st.Active > 0 {
		st.Active--
	}
	st.LastRuntime = time.Since(startedAt)
	if panicked {
		st.Panics++
	}
	if err != nil {
		st.Failures++
		st.LastErr = err.Error()
	}
	s.mu.Unlock()
}

// Go runs fn on its own goroutine. A panic is recovered, logged and turned
// into an error; it never escapes to the caller's goroutine.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	atomic.AddUint64(&s.started, 1)
	atomic.AddInt64(&s.active, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.active, -1)

		startedAt := s.noteStart(name)

		defer func() {
			if r := recover(); r != nil {
				atomic.AddUint64(&s.panics, 1)
				err := fmt.Errorf("panic in %s: %v", name, r)
				if !s.log.IsZero() {
					s.log.Error("goroutine panicked", logx.String("name", name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
				}
				s.noteStop(name, startedAt, err, true)
				s.fail(err)
			}
		}()

		err := fn(s.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%s: %w", name, err)
			s.noteStop(name, startedAt, err, false)
			s.fail(err)
			return
		}
		s.noteStop(name, startedAt, nil, false)
	}()
}

func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

func (s *Supervisor) Wait(ctx context.Context) error {
	s.doneOnce.Do(func() {
		go func() {
			s.wg.Wait()
			close(s.doneCh)
		}()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.doneCh:
		return s.Err()
	}
}

func (s *Supervisor) fail(err error) {
	s.errOnce.Do(func() { s.firstErr.Store(err) })
	if s.cancelOnErr {
		s.cancel()
	}
}
