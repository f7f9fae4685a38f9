package app

import (
	"context"
	"strings"

	"boomyouup/internal/config"
	"boomyouup/internal/eventbus"
	"boomyouup/internal/schedule"
	"boomyouup/internal/scheduler"
	logx "boomyouup/pkg/logx"
)

// loadSchedule reads the schedule file and, when enabled, writes the sorted
// form back. A failed write only costs the rewrite.
func (a *App) loadSchedule() (*config.Schedule, error) {
	s, err := config.LoadSchedule(a.schedulePath)
	if err != nil {
		return nil, err
	}
	if config.Bool(a.cfg.Schedule.NormalizeFile, true) {
		norm := s.Normalized()
		if norm.Hash() != s.Hash() {
			if err := config.SaveSchedule(a.schedulePath, norm); err != nil {
				a.log.Warn("schedule rewrite failed", logx.String("path", a.schedulePath), logx.Err(err))
			} else {
				a.log.Info("schedule rewritten in sorted order", logx.Int("items", len(norm.Items)))
			}
		}
	}
	return s, nil
}

// runSchedule runs the dispatch loop for s and replaces it with a fresh loop
// over a freshly built table whenever updates delivers a new schedule.
// Actions already started keep running across a swap.
func (a *App) runSchedule(ctx context.Context, s *config.Schedule, updates <-chan *config.Schedule) error {
	current := s
	for {
		loop, err := a.newLoop(current)
		if err != nil {
			return err
		}
		loopCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- loop.Run(loopCtx) }()

		select {
		case err := <-done:
			cancel()
			return err
		case next, ok := <-updates:
			if !ok {
				// Watcher gone; keep the current loop until shutdown.
				err := <-done
				cancel()
				return err
			}
			// Coalesce bursts: keep only the latest schedule in the channel.
		DRAIN:
			for {
				select {
				case newer, ok := <-updates:
					if !ok {
						break DRAIN
					}
					next = newer
				default:
					break DRAIN
				}
			}
			cancel()
			<-done

			slots, fields := config.SummarizeScheduleChange(current, next)
			if len(slots) > 0 {
				a.log.Info("schedule reloaded", append([]logx.Field{logx.String("changed", strings.Join(slots, ","))}, fields...)...)
			} else {
				a.log.Info("schedule reloaded (no slot changes)")
			}
			current = next
		}
	}
}

func (a *App) newLoop(s *config.Schedule) (*scheduler.Loop, error) {
	table := schedule.Expand(s.Table())
	loop, err := scheduler.New(table, a.runner,
		scheduler.WithClock(a.clk),
		scheduler.WithLogger(a.base),
		scheduler.WithBus(a.bus),
		scheduler.WithMetrics(a.metrics),
		scheduler.WithResync(a.resync),
	)
	if err != nil {
		return nil, err
	}
	a.loopMu.Lock()
	a.loop = loop
	a.loopMu.Unlock()
	a.bus.Publish(eventbus.Event{Type: eventbus.ScheduleLoaded, Time: a.clk.Now(), Data: table.Len()})
	return loop, nil
}
