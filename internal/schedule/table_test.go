package schedule

import (
	"math/rand"
	"testing"

	"boomyouup/internal/clock"
)

func tm(h, m, s int) clock.Time { return clock.Time{Hour: h, Minute: m, Second: s} }

func exec(target string) Action {
	return Action{Target: target, Kind: KindExecute, NotifyLead: LeadNone}
}

func times(t *Table) []clock.Time {
	out := make([]clock.Time, 0, t.Len())
	for _, e := range t.Entries() {
		out = append(out, e.Time)
	}
	return out
}

func assertSortedUnique(t *testing.T, tbl *Table) {
	t.Helper()
	ts := times(tbl)
	for i := 1; i < len(ts); i++ {
		if !ts[i-1].Before(ts[i]) {
			t.Fatalf("table not strictly ascending at %d: %v", i, ts)
		}
	}
}

func TestInsertMergesSameTime(t *testing.T) {
	t.Parallel()
	tbl := &Table{}
	tbl.Insert(tm(7, 0, 0), exec("first"))
	tbl.Insert(tm(7, 0, 0), exec("second"))

	if tbl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tbl.Len())
	}
	got := tbl.At(0).Actions
	if len(got) != 2 || got[0].Target != "first" || got[1].Target != "second" {
		t.Fatalf("actions = %+v, want [first second]", got)
	}
}

func TestInsertKeepsOrder(t *testing.T) {
	t.Parallel()
	tbl := &Table{}
	for _, x := range []clock.Time{tm(18, 0, 0), tm(6, 0, 0), tm(12, 0, 0), tm(0, 0, 1), tm(23, 59, 59)} {
		tbl.Insert(x, exec(x.String()))
	}
	assertSortedUnique(t, tbl)
	if tbl.Len() != 5 {
		t.Fatalf("Len = %d, want 5", tbl.Len())
	}
	if first := tbl.At(0).Time; first != tm(0, 0, 1) {
		t.Fatalf("first = %v", first)
	}
}

func TestInsertReverseMatchesInsert(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	fwd, rev := &Table{}, &Table{}
	for i := 0; i < 500; i++ {
		x := clock.FromSeconds(rng.Intn(200) * 431)
		a := exec(x.String())
		a.Arguments = string(rune('a' + i%26))
		fwd.Insert(x, a)
		rev.InsertReverse(x, a)
	}
	assertSortedUnique(t, rev)
	fe, re := fwd.Entries(), rev.Entries()
	if len(fe) != len(re) {
		t.Fatalf("len mismatch: %d vs %d", len(fe), len(re))
	}
	for i := range fe {
		if fe[i].Time != re[i].Time || len(fe[i].Actions) != len(re[i].Actions) {
			t.Fatalf("entry %d differs: %+v vs %+v", i, fe[i], re[i])
		}
		for j := range fe[i].Actions {
			if fe[i].Actions[j] != re[i].Actions[j] {
				t.Fatalf("entry %d action %d differs", i, j)
			}
		}
	}
}

func TestFirstAtOrAfter(t *testing.T) {
	t.Parallel()
	tbl := FromEntries([]Entry{
		{Time: tm(12, 0, 0), Actions: []Action{exec("noon")}},
		{Time: tm(6, 0, 0), Actions: []Action{exec("morning")}},
		{Time: tm(18, 0, 0), Actions: []Action{exec("evening")}},
	})
	tests := []struct {
		name string
		q    clock.Time
		want int
	}{
		{name: "wraps after last", q: tm(20, 0, 0), want: 0},
		{name: "exact match", q: tm(12, 0, 0), want: 1},
		{name: "between", q: tm(12, 0, 1), want: 2},
		{name: "before first", q: tm(0, 0, 0), want: 0},
		{name: "exact last", q: tm(18, 0, 0), want: 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tbl.FirstAtOrAfter(tt.q); got != tt.want {
				t.Fatalf("FirstAtOrAfter(%v) = %d, want %d", tt.q, got, tt.want)
			}
		})
	}
	if got := (&Table{}).FirstAtOrAfter(tm(1, 0, 0)); got != 0 {
		t.Fatalf("empty table FirstAtOrAfter = %d", got)
	}
}

func TestNextWraps(t *testing.T) {
	t.Parallel()
	tbl := FromEntries([]Entry{{Time: tm(1, 0, 0), Actions: []Action{exec("a")}}, {Time: tm(2, 0, 0), Actions: []Action{exec("b")}}})
	if tbl.Next(0) != 1 || tbl.Next(1) != 0 {
		t.Fatalf("Next does not cycle")
	}
}

func TestAtReturnsCopy(t *testing.T) {
	t.Parallel()
	tbl := &Table{}
	tbl.Insert(tm(1, 0, 0), exec("a"))
	e := tbl.At(0)
	e.Actions[0].Target = "mutated"
	if tbl.At(0).Actions[0].Target != "a" {
		t.Fatalf("At leaked internal storage")
	}
}
