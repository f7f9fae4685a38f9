package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "boomyouup/pkg/logx"
)

// Store is the minimal history API used by the dispatch runner and the app.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Prune deletes records started before cutoff and reports how many went.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
