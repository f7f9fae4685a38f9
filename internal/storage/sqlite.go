package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "boomyouup/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer; action goroutines serialize here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Append(ctx context.Context, r Record) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	synthetic := 0
	if r.Synthetic {
		synthetic = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history(id, slot, kind, target, arguments, synthetic, started, duration_ms, err)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Slot, r.Kind, r.Target, nullStr(r.Arguments), synthetic,
		r.Started.UnixMilli(), r.Duration.Milliseconds(), nullStr(r.Error),
	)
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slot, kind, target, arguments, synthetic, started, duration_ms, err
		 FROM history ORDER BY started DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                Record
			args, errStr     sql.NullString
			synthetic        int
			startedMS, durMS int64
		)
		if err := rows.Scan(&r.ID, &r.Slot, &r.Kind, &r.Target, &args, &synthetic, &startedMS, &durMS, &errStr); err != nil {
			return nil, err
		}
		r.Arguments = args.String
		r.Error = errStr.String
		r.Synthetic = synthetic != 0
		r.Started = time.UnixMilli(startedMS)
		r.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDisabled
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE started < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
