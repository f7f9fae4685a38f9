// Package app wires settings, adapters and the dispatch loop into the
// boomyouup daemon.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"boomyouup/internal/clock"
	"boomyouup/internal/config"
	"boomyouup/internal/dispatch"
	"boomyouup/internal/eventbus"
	"boomyouup/internal/observability/metrics"
	"boomyouup/internal/runtime/supervisor"
	"boomyouup/internal/schedule"
	"boomyouup/internal/scheduler"
	"boomyouup/internal/storage"
	logx "boomyouup/pkg/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
)

type App struct {
	cfg          *config.Config
	schedulePath string
	resync       time.Duration
	retention    time.Duration

	log  logx.Logger // comp=app
	base logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	clk  clock.Clock

	store      storage.Store
	reg        *prometheus.Registry
	metrics    *metrics.Metrics
	metricsSrv *metrics.Server

	adapters collaborators
	executor dispatch.Executor
	player   dispatch.AudioPlayer
	notifier dispatch.Notifier

	sdNotify func(state string) (bool, error)

	sup     *supervisor.Supervisor
	runner  *dispatch.Runner
	watcher *config.ScheduleWatcher
	cron    *cron.Cron

	loopMu sync.Mutex
	loop   *scheduler.Loop
}

type Option func(*App)

// WithSchedulePath overrides schedule.path from the settings file.
func WithSchedulePath(path string) Option {
	return func(a *App) {
		if path != "" {
			a.schedulePath = path
		}
	}
}

func WithClock(c clock.Clock) Option { return func(a *App) { a.clk = c } }

// WithLogger replaces the logger built from the logging settings.
func WithLogger(log logx.Logger) Option { return func(a *App) { a.log = log } }

func WithExecutor(e dispatch.Executor) Option           { return func(a *App) { a.executor = e } }
func WithPlayer(p dispatch.AudioPlayer) Option          { return func(a *App) { a.player = p } }
func WithNotifier(n dispatch.Notifier) Option           { return func(a *App) { a.notifier = n } }
func withSdNotify(fn func(string) (bool, error)) Option { return func(a *App) { a.sdNotify = fn } }

// New loads the settings at settingsPath and builds every long-lived
// component. Nothing runs until Start.
func New(settingsPath string, opts ...Option) (*App, error) {
	cfg, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}
	resync, err := config.ParseDurationField("schedule.resync", cfg.Schedule.Resync)
	if err != nil {
		return nil, err
	}
	retention, err := config.ParseDurationField("storage.retention", cfg.Storage.Retention)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:          cfg,
		schedulePath: cfg.Schedule.Path,
		resync:       resync,
		retention:    retention,
		sdNotify:     sdNotify,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log.IsZero() {
		a.logs, a.log = logx.New(mapLogConfig(cfg))
	}
	if a.clk == nil {
		a.clk = clock.Real()
	}
	log := a.log
	a.base = log
	a.log = log.With(logx.String("comp", "app"))
	a.bus = eventbus.New()

	a.reg = prometheus.NewRegistry()
	a.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if a.metrics, err = metrics.New(a.reg); err != nil {
		return nil, err
	}
	a.metricsSrv = metrics.NewServer(a.reg, log)

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log)
		if err != nil {
			return nil, err
		}
		a.store = st
		a.log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	adapters, err := buildCollaborators(cfg, a.metrics, log)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.adapters = adapters
	if a.executor == nil {
		a.executor = adapters.executor
	}
	if a.player == nil {
		a.player = adapters.player
	}
	if a.notifier == nil {
		a.notifier = adapters.notifier
	}
	return a, nil
}

func (a *App) Config() *config.Config { return a.cfg }

func (a *App) SchedulePath() string { return a.schedulePath }

// Store returns the dispatch history, nil when storage is disabled.
func (a *App) Store() storage.Store { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Snapshot reports the state of the running loop. ok is false before the
// first loop starts.
func (a *App) Snapshot() (snap scheduler.Snapshot, ok bool) {
	a.loopMu.Lock()
	l := a.loop
	a.loopMu.Unlock()
	if l == nil {
		return scheduler.Snapshot{}, false
	}
	return l.Snapshot(), true
}

// Goroutines reports supervised goroutines by name, busiest first. It is
// empty before Start.
func (a *App) Goroutines() []supervisor.GoroutineStats {
	if a.sup == nil {
		return nil
	}
	return a.sup.Stats()
}

// Runner builds a dispatch runner outside the daemon, for one-off actions.
func (a *App) Runner() *dispatch.Runner {
	return dispatch.New(a.dispatchConfig(), dispatch.Deps{
		Executor: a.executor,
		Player:   a.player,
		Notifier: a.notifier,
		Store:    a.store,
		Bus:      a.bus,
		Metrics:  a.metrics,
		Clock:    a.clk,
		Log:      a.base,
	})
}

func (a *App) dispatchConfig() dispatch.Config {
	return dispatch.Config{AppName: a.cfg.Dispatch.AppName, Summary: a.cfg.Dispatch.Summary}
}

// Start loads the schedule and starts the dispatch loop with its supporting
// services. Schedule errors are returned before anything runs.
func (a *App) Start(ctx context.Context) error {
	s, err := a.loadSchedule()
	if err != nil {
		return err
	}

	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.base.With(logx.String("comp", "supervisor"))), supervisor.WithCancelOnError(true))
	a.runner = dispatch.New(a.dispatchConfig(), dispatch.Deps{
		Executor:   a.executor,
		Player:     a.player,
		Notifier:   a.notifier,
		Supervisor: a.sup,
		Store:      a.store,
		Bus:        a.bus,
		Metrics:    a.metrics,
		Clock:      a.clk,
		Log:        a.base,
	})

	sup := a.sup
	if err := metrics.RegisterGoroutines(a.reg, func() (int64, uint64) {
		c := sup.Counters()
		return c.Active, c.Panics
	}); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("metrics: %w", err)
	}
	if err := a.metricsSrv.Apply(a.sup.Context(), mapMetricsConfig(a.cfg)); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("metrics: %w", err)
	}
	if err := a.startHousekeeping(); err != nil {
		a.sup.Cancel()
		return err
	}

	// Log events for observability/debug; keep it debug-level, slots fire often.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				if e.Type == eventbus.SlotFired {
					a.notifyStatus(e.Data)
				}
			}
		}
	})

	var updates chan *config.Schedule
	if a.cfg.Schedule.Watch {
		a.watcher = config.NewScheduleWatcher(a.schedulePath, a.base)
		a.watcher.Commit(s)
		updates = a.watcher.Subscribe(4)
		a.sup.Go("schedule.watch", func(c context.Context) error {
			return a.watcher.Watch(c)
		})
	}

	a.sup.Go("scheduler.loop", func(c context.Context) error {
		if updates != nil {
			defer a.watcher.Unsubscribe(updates)
		}
		return a.runSchedule(c, s, updates)
	})

	a.notify("READY=1")
	a.log.Info("app started", logx.String("schedule", a.schedulePath))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.adapters.close()
		a.closeStore()
		if a.logs != nil {
			_ = a.logs.Close()
		}
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.notify("STOPPING=1")

	// Cancel first so the loop and the watcher unwind immediately.
	a.sup.Cancel()

	// Helper: run a shutdown step with an upper bound so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("housekeeping", 2*time.Second, func(c context.Context) error {
		if a.cron == nil {
			return nil
		}
		select {
		case <-a.cron.Stop().Done():
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	step("metrics", time.Second, func(c context.Context) error { a.metricsSrv.Stop(c); return nil })
	// Supervised goroutines include in-flight actions; a player still
	// running gets its process killed through the canceled context.
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	for _, st := range a.sup.Stats() {
		a.log.Debug("goroutine stats",
			logx.String("name", st.Name),
			logx.Uint64("started", st.Started),
			logx.Int64("active", st.Active),
			logx.Uint64("failures", st.Failures),
			logx.Uint64("panics", st.Panics),
		)
	}
	step("adapters", time.Second, func(context.Context) error { a.adapters.close(); return nil })
	step("storage", time.Second, func(context.Context) error { a.closeStore(); return nil })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("storage close failed", logx.Err(err))
	}
}

// ExpandedTable loads the schedule file without rewriting it and returns the
// table the loop would run.
func (a *App) ExpandedTable() (*schedule.Table, error) {
	s, err := config.LoadSchedule(a.schedulePath)
	if err != nil {
		return nil, err
	}
	return schedule.Expand(s.Table()), nil
}
