package schedule

import (
	"errors"
	"sort"

	"boomyouup/internal/clock"
)

// ErrEmptyTable is returned when a schedule has no slots to run.
var ErrEmptyTable = errors.New("schedule has no entries")

// Entry is every action scheduled for one time of day, in insertion order.
type Entry struct {
	Time    clock.Time
	Actions []Action
}

// Table is a list of entries sorted ascending by Time with unique times.
//
// A Table is built with Insert/InsertReverse, expanded once, then handed to
// the dispatch loop which only reads it. It represents one repeating day:
// lookups past the last entry wrap to the first.
type Table struct {
	entries []Entry
}

// FromEntries builds a table from entries in any order. Entries sharing a
// time are merged, keeping their actions in input order.
func FromEntries(in []Entry) *Table {
	t := &Table{}
	for _, e := range in {
		for _, a := range e.Actions {
			t.Insert(e.Time, a)
		}
	}
	return t
}

func (t *Table) Len() int { return len(t.entries) }

// At returns the i-th entry. The action slice is a copy.
func (t *Table) At(i int) Entry {
	e := t.entries[i]
	return Entry{Time: e.Time, Actions: append([]Action(nil), e.Actions...)}
}

// Entries returns a deep copy of the table contents.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i := range t.entries {
		out[i] = t.At(i)
	}
	return out
}

func (t *Table) Clone() *Table { return &Table{entries: t.Entries()} }

// Insert adds a at time tm. If an entry for tm exists the action is appended
// to it, otherwise a new entry is placed so the table stays sorted.
func (t *Table) Insert(tm clock.Time, a Action) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Time.Compare(tm) >= 0
	})
	t.insertAt(i, tm, a)
}

// InsertReverse behaves like Insert but searches from the tail, which is
// cheaper when generated times mostly land near the end of the table.
func (t *Table) InsertReverse(tm clock.Time, a Action) {
	i := len(t.entries)
	for i > 0 && t.entries[i-1].Time.Compare(tm) >= 0 {
		i--
		if t.entries[i].Time == tm {
			break
		}
	}
	t.insertAt(i, tm, a)
}

// insertAt merges into entries[i] when it has time tm, or inserts a new
// entry before it. i must be the lower bound of tm.
func (t *Table) insertAt(i int, tm clock.Time, a Action) {
	if i < len(t.entries) && t.entries[i].Time == tm {
		t.entries[i].Actions = append(t.entries[i].Actions, a)
		return
	}
	t.entries = append(t.entries, Entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = Entry{Time: tm, Actions: []Action{a}}
}

// FirstAtOrAfter returns the index of the first entry whose time is >= tm.
// When tm is past the last entry it wraps to 0, the first slot of the next
// day. It returns 0 for an empty table.
func (t *Table) FirstAtOrAfter(tm clock.Time) int {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Time.Compare(tm) >= 0
	})
	if i == len(t.entries) {
		return 0
	}
	return i
}

// Next returns the index following i, wrapping to 0.
func (t *Table) Next(i int) int {
	if len(t.entries) == 0 {
		return 0
	}
	return (i + 1) % len(t.entries)
}
