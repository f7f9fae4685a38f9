package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "boomyouup/pkg/logx"
)

// fileStore appends one JSON object per line to <path>. Prune rewrites the
// file through a temp file and rename.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path, f: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) Append(ctx context.Context, r Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrDisabled
	}
	return json.NewEncoder(s.f).Encode(r)
}

func (s *fileStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}

func (s *fileStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, ErrDisabled
	}
	all, err := s.readLocked()
	if err != nil {
		return 0, err
	}
	keep := all[:0]
	for _, r := range all {
		if !r.Started.Before(cutoff) {
			keep = append(keep, r)
		}
	}
	removed := len(all) - len(keep)
	if removed == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(f)
	for _, r := range keep {
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return 0, err
		}
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	_ = s.f.Close()
	s.f = nil
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}
	nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	s.f = nf
	return removed, nil
}

func (s *fileStore) readLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			s.log.Debug("skipping corrupt history line", logx.Err(err))
			continue
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
