package config

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "boomyouup/pkg/logx"

	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// ScheduleWatcher reloads the schedule file when it changes on disk and
// publishes each new valid version. Invalid edits are logged and ignored;
// the previous schedule stays in effect.
type ScheduleWatcher struct {
	path     string
	debounce time.Duration
	log      logx.Logger

	mu       sync.RWMutex
	current  *Schedule
	lastHash uint64

	// subsMu guards subs and ensures we never send on a channel that is
	// concurrently being closed in Unsubscribe.
	subsMu sync.Mutex
	subs   []chan *Schedule
}

func NewScheduleWatcher(path string, log logx.Logger) *ScheduleWatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ScheduleWatcher{
		path:     path,
		debounce: defaultDebounce,
		log:      log.With(logx.String("comp", "schedule_watch"), logx.String("path", path)),
	}
}

// Commit records s as the schedule in effect. Later file events with the
// same content are not republished.
func (w *ScheduleWatcher) Commit(s *Schedule) {
	w.mu.Lock()
	w.current = s
	w.lastHash = s.Normalized().Hash()
	w.mu.Unlock()
}

func (w *ScheduleWatcher) Current() *Schedule {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *ScheduleWatcher) Subscribe(buffer int) chan *Schedule {
	ch := make(chan *Schedule, buffer)
	w.subsMu.Lock()
	w.subs = append(w.subs, ch)
	w.subsMu.Unlock()
	return ch
}

func (w *ScheduleWatcher) Unsubscribe(ch chan *Schedule) {
	if ch == nil {
		return
	}
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for i, s := range w.subs {
		if s == ch {
			last := len(w.subs) - 1
			w.subs[i] = w.subs[last]
			w.subs[last] = nil
			w.subs = w.subs[:last]
			close(ch)
			return
		}
	}
}

// publish delivers the latest schedule. A full subscriber loses its oldest
// pending schedule, never the newest.
func (w *ScheduleWatcher) publish(s *Schedule) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
			w.log.Debug("schedule update dropped (subscriber slow)", logx.Int("queue_cap", cap(ch)))
		}
	}
}

// reload parses the file and publishes it if valid and different.
func (w *ScheduleWatcher) reload() {
	s, err := LoadSchedule(w.path)
	if err != nil {
		w.log.Warn("schedule reload rejected", logx.Err(err))
		return
	}
	h := s.Normalized().Hash()
	w.mu.Lock()
	if h != 0 && h == w.lastHash {
		w.mu.Unlock()
		w.log.Debug("schedule unchanged; skipping publish")
		return
	}
	w.current = s
	w.lastHash = h
	w.mu.Unlock()

	w.publish(s)
	w.log.Info("schedule reloaded", logx.Int("items", len(s.Items)))
}

// Watch blocks until ctx is done. The directory is watched rather than the
// file so editors that replace the file by rename are followed. A broken
// watcher is recreated with jittered backoff.
func (w *ScheduleWatcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}
	sleep := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() == nil {
				w.reload()
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Warn("schedule watch init failed", logx.Err(err))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			w.log.Warn("schedule watch add failed", logx.Err(err), logx.String("dir", dir))
			if !sleep(nextWait()) {
				return nil
			}
			continue
		}

		backoff = restartBackoffBase
		w.log.Debug("schedule watcher started", logx.String("dir", dir))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("schedule watch overflow; forcing reload", logx.Err(err))
					debounce()
					continue
				}
				w.log.Warn("schedule watch error", logx.Err(err))
			}
		}

		_ = fw.Close()
		wait := nextWait()
		w.log.Warn("schedule watcher stopped; restarting", logx.Duration("backoff", wait))
		if !sleep(wait) {
			return nil
		}
	}
}
