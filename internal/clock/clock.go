package clock

import "time"

// Clock abstracts the wall clock so the dispatch loop can be driven by tests.
type Clock interface {
	// Now returns the current wall-clock reading.
	Now() time.Time

	// After delivers on the returned channel once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns the process wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
