package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the scheduler and the dispatch runner.
const (
	ScheduleLoaded   = "schedule.loaded"
	SlotFired        = "slot.fired"
	SlotsMissed      = "slot.missed"
	DispatchStarted  = "dispatch.started"
	DispatchFinished = "dispatch.finished"
	DispatchFailed   = "dispatch.failed"
)

// Event is a lightweight, in-memory signal used to decouple components.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Nop returns a bus that discards everything.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}
func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}

type memBus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// Dropped reports how many deliveries were skipped because a subscriber
// was full.
func Dropped(b Bus) uint64 {
	if m, ok := b.(*memBus); ok {
		return m.dropped.Load()
	}
	return 0
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			// Publish holds the read lock while sending, so closing under the
			// write lock cannot race a send.
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}
