// Package clocktest provides a manually driven clock.Clock for tests.
package clocktest

import (
	"sync"
	"time"
)

type timer struct {
	d  time.Duration
	ch chan time.Time
}

// Fake is a clock whose timers only fire when the test calls Fire.
//
// By default Now is frozen; with AutoAdvance the reading moves forward by the
// duration of each fired timer.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	advance bool
	pending []timer
	waits   chan time.Duration
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now, waits: make(chan time.Duration, 64)}
}

func (f *Fake) AutoAdvance(on bool) {
	f.mu.Lock()
	f.advance = on
	f.mu.Unlock()
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	f.pending = append(f.pending, timer{d: d, ch: ch})
	f.mu.Unlock()
	select {
	case f.waits <- d:
	default:
	}
	return ch
}

// Waits reports the duration of every After call, in order.
func (f *Fake) Waits() <-chan time.Duration { return f.waits }

// Fire releases the oldest pending timer. It returns false if none is pending.
func (f *Fake) Fire() bool {
	f.mu.Lock()
	if len(f.pending) == 0 {
		f.mu.Unlock()
		return false
	}
	t := f.pending[0]
	f.pending = f.pending[1:]
	if f.advance {
		f.now = f.now.Add(t.d)
	}
	now := f.now
	f.mu.Unlock()
	t.ch <- now
	return true
}

// NextWait blocks until the next After call or the timeout elapses.
func (f *Fake) NextWait(timeout time.Duration) (time.Duration, bool) {
	select {
	case d := <-f.waits:
		return d, true
	case <-time.After(timeout):
		return 0, false
	}
}
