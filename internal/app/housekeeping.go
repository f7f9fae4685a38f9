package app

import (
	"context"
	"fmt"
	"time"

	logx "boomyouup/pkg/logx"

	"github.com/robfig/cron/v3"
)

const pruneTimeout = 30 * time.Second

// startHousekeeping schedules history pruning on storage.prune_spec. It is
// a no-op without a store or with zero retention.
func (a *App) startHousekeeping() error {
	if a.store == nil || a.retention <= 0 {
		return nil
	}
	c := cron.New(cron.WithLocation(time.Local))
	if _, err := c.AddFunc(a.cfg.Storage.PruneSpec, a.pruneHistory); err != nil {
		return fmt.Errorf("storage.prune_spec: %w", err)
	}
	c.Start()
	a.cron = c
	a.log.Debug("history pruning scheduled",
		logx.String("spec", a.cfg.Storage.PruneSpec),
		logx.Duration("retention", a.retention),
	)
	return nil
}

func (a *App) pruneHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	cutoff := a.clk.Now().Add(-a.retention)
	n, err := a.store.Prune(ctx, cutoff)
	if err != nil {
		a.log.Warn("history prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		a.log.Info("history pruned", logx.Int("removed", n), logx.Time("before", cutoff))
	}
}
