// Package dispatch maps a fired Action onto its external effect. Every action
// runs on its own supervised goroutine; failures are logged and recorded but
// never reach the dispatch loop.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boomyouup/internal/clock"
	"boomyouup/internal/eventbus"
	"boomyouup/internal/observability/metrics"
	rtsup "boomyouup/internal/runtime/supervisor"
	"boomyouup/internal/schedule"
	"boomyouup/internal/storage"
	logx "boomyouup/pkg/logx"

	"github.com/google/uuid"
)

// Executor runs a program or opens a file or URL with the platform handler.
type Executor interface {
	Execute(ctx context.Context, target, arguments string) error
}

// AudioPlayer plays a file and returns when playback is over.
type AudioPlayer interface {
	Play(ctx context.Context, path string) error
}

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, appName, summary, body string) error
}

var (
	ErrNoExecutor = errors.New("dispatch: no executor configured")
	ErrNoPlayer   = errors.New("dispatch: no audio player configured")
	ErrNoNotifier = errors.New("dispatch: no notifier configured")
)

const (
	DefaultAppName = "BoomYouUp"
	DefaultSummary = "task reminder"

	historyTimeout = 5 * time.Second
)

type Config struct {
	AppName string
	Summary string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.AppName) == "" {
		c.AppName = DefaultAppName
	}
	if strings.TrimSpace(c.Summary) == "" {
		c.Summary = DefaultSummary
	}
	return c
}

// Deps are the collaborators of a Runner. Missing infrastructure falls back
// to no-ops; a missing Supervisor gets a private one.
type Deps struct {
	Executor   Executor
	Player     AudioPlayer
	Notifier   Notifier
	Supervisor *rtsup.Supervisor
	Store      storage.Store
	Bus        eventbus.Bus
	Metrics    *metrics.Metrics
	Clock      clock.Clock
	Log        logx.Logger
}

// Report describes one finished action. It is published on the bus and
// stored in the history.
type Report struct {
	ID       string
	Slot     clock.Time
	Action   schedule.Action
	Started  time.Time
	Duration time.Duration
	Err      error
}

type Runner struct {
	cfg  Config
	deps Deps
	log  logx.Logger
}

func New(cfg Config, deps Deps) *Runner {
	if deps.Bus == nil {
		deps.Bus = eventbus.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	if deps.Supervisor == nil {
		deps.Supervisor = rtsup.NewSupervisor(context.Background(), rtsup.WithLogger(deps.Log))
	}
	return &Runner{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  deps.Log.With(logx.String("comp", "dispatch")),
	}
}

// Dispatch starts a on its own goroutine and returns its dispatch id without
// waiting. Nothing is started once ctx is done.
func (r *Runner) Dispatch(ctx context.Context, slot clock.Time, a schedule.Action) string {
	if ctx.Err() != nil {
		return ""
	}
	id := uuid.NewString()
	r.deps.Bus.Publish(eventbus.Event{
		Type: eventbus.DispatchStarted,
		Time: r.deps.Clock.Now(),
		Data: Report{ID: id, Slot: slot, Action: a},
	})
	name := "action:" + a.Kind.String()
	r.deps.Supervisor.Go(name, func(ctx context.Context) error {
		r.run(ctx, id, slot, a)
		return nil
	})
	return id
}

// Run performs a synchronously and returns its error. Used by the CLI test
// commands; the loop always goes through Dispatch.
func (r *Runner) Run(ctx context.Context, slot clock.Time, a schedule.Action) error {
	return r.run(ctx, uuid.NewString(), slot, a).Err
}

func (r *Runner) run(ctx context.Context, id string, slot clock.Time, a schedule.Action) (rep Report) {
	rep = Report{ID: id, Slot: slot, Action: a, Started: r.deps.Clock.Now()}
	done := r.deps.Metrics.DispatchStarted(a.Kind.String())

	defer func() {
		if p := recover(); p != nil {
			rep.Err = fmt.Errorf("panic: %v", p)
			r.log.Error("action panicked",
				logx.String("slot", slot.String()),
				logx.String("target", a.Target),
				logx.Any("panic", p),
				logx.Stack(logx.StackTrace(3, 32)),
			)
		}
		rep.Duration = r.deps.Clock.Now().Sub(rep.Started)
		done(rep.Duration, rep.Err)
		r.finish(rep)
	}()

	rep.Err = r.perform(ctx, a)
	return rep
}

func (r *Runner) perform(ctx context.Context, a schedule.Action) error {
	switch a.Kind {
	case schedule.KindExecute:
		if r.deps.Executor == nil {
			return ErrNoExecutor
		}
		return r.deps.Executor.Execute(ctx, a.Target, a.Arguments)
	case schedule.KindPlayAudio:
		if r.deps.Player == nil {
			return ErrNoPlayer
		}
		return r.deps.Player.Play(ctx, a.Target)
	case schedule.KindNotification:
		if r.deps.Notifier == nil {
			return ErrNoNotifier
		}
		return r.deps.Notifier.Notify(ctx, r.cfg.AppName, r.cfg.Summary, NotificationBody(r.cfg.AppName, a))
	default:
		return fmt.Errorf("dispatch: unknown action kind %s", a.Kind)
	}
}

func (r *Runner) finish(rep Report) {
	a := rep.Action
	fields := []logx.Field{
		logx.String("id", rep.ID),
		logx.String("slot", rep.Slot.String()),
		logx.String("kind", a.Kind.String()),
		logx.String("target", a.Target),
		logx.Duration("took", rep.Duration),
	}
	typ := eventbus.DispatchFinished
	if rep.Err != nil {
		typ = eventbus.DispatchFailed
		r.log.Warn("action failed", append(fields, logx.Err(rep.Err))...)
	} else {
		r.log.Debug("action done", fields...)
	}
	r.deps.Bus.Publish(eventbus.Event{Type: typ, Time: r.deps.Clock.Now(), Data: rep})

	if r.deps.Store == nil {
		return
	}
	rec := storage.Record{
		ID:        rep.ID,
		Slot:      rep.Slot.String(),
		Kind:      a.Kind.String(),
		Target:    a.Target,
		Arguments: a.Arguments,
		Synthetic: a.Synthetic(),
		Started:   rep.Started,
		Duration:  rep.Duration,
	}
	if rep.Err != nil {
		rec.Error = rep.Err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
	defer cancel()
	if err := r.deps.Store.Append(ctx, rec); err != nil {
		r.log.Warn("history append failed", logx.String("id", rep.ID), logx.Err(err))
	}
}

// NotificationBody is the text shown for a notification action.
func NotificationBody(appName string, a schedule.Action) string {
	cmd := a.Target
	if args := strings.TrimSpace(a.Arguments); args != "" {
		cmd += " " + args
	}
	return fmt.Sprintf("The reminder you set for command %s fired\nfrom %s", cmd, appName)
}
