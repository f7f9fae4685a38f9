package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boomyouup/internal/clock"
	"boomyouup/internal/clock/clocktest"
	"boomyouup/internal/schedule"
)

type fired struct {
	slot clock.Time
	a    schedule.Action
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []fired
	ch    chan fired
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{ch: make(chan fired, 64)}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, slot clock.Time, a schedule.Action) string {
	d.mu.Lock()
	d.calls = append(d.calls, fired{slot, a})
	d.mu.Unlock()
	d.ch <- fired{slot, a}
	return "id"
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func at(h, m, s int) time.Time {
	return time.Date(2024, 3, 10, h, m, s, 0, time.UTC)
}

func table(times ...clock.Time) *schedule.Table {
	t := &schedule.Table{}
	for _, tm := range times {
		t.Insert(tm, schedule.Action{Target: "job-" + tm.String(), Kind: schedule.KindExecute, NotifyLead: schedule.LeadNone})
	}
	return t
}

type harness struct {
	clk    *clocktest.Fake
	disp   *fakeDispatcher
	loop   *Loop
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, tbl *schedule.Table, now time.Time, opts ...Option) *harness {
	t.Helper()
	h := &harness{clk: clocktest.NewFake(now), disp: newFakeDispatcher(), done: make(chan error, 1)}
	loop, err := New(tbl, h.disp, append([]Option{WithClock(h.clk)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.loop = loop
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Errorf("loop did not stop")
		}
	})
	return h
}

func (h *harness) nextWait(t *testing.T) time.Duration {
	t.Helper()
	d, ok := h.clk.NextWait(2 * time.Second)
	if !ok {
		t.Fatalf("loop never waited")
	}
	return d
}

func (h *harness) dispatched(t *testing.T) fired {
	t.Helper()
	select {
	case f := <-h.disp.ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("nothing dispatched")
	}
	return fired{}
}

func TestSingleSlotEndToEnd(t *testing.T) {
	t.Parallel()
	tbl := &schedule.Table{}
	tbl.Insert(clock.New(7, 0, 0), schedule.Action{Target: "notepad", Kind: schedule.KindExecute, NotifyLead: schedule.LeadNone})

	h := start(t, tbl, at(6, 59, 58))
	h.clk.AutoAdvance(true)

	if d := h.nextWait(t); d != 2*time.Second {
		t.Fatalf("first wait = %v, want 2s", d)
	}
	h.clk.Fire()

	f := h.dispatched(t)
	if f.a.Target != "notepad" || f.a.Kind != schedule.KindExecute || f.slot != clock.New(7, 0, 0) {
		t.Fatalf("dispatched %+v", f)
	}

	d := h.nextWait(t)
	if d < 86398*time.Second || d > clock.Day {
		t.Fatalf("second wait = %v, want about one day", d)
	}
	if got := h.disp.count(); got != 1 {
		t.Fatalf("dispatch count = %d, want 1", got)
	}

	snap := h.loop.Snapshot()
	if snap.State != StateWaiting || snap.Fired != 1 || snap.Slots != 1 || snap.NextSlot != clock.New(7, 0, 0) {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartSkipsSlotAtCurrentSecond(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(6, 0, 0), clock.New(12, 0, 0), clock.New(18, 0, 0)), at(12, 0, 0))
	if d := h.nextWait(t); d != 6*time.Hour {
		t.Fatalf("first wait = %v, want 6h (18:00 slot)", d)
	}
	if snap := h.loop.Snapshot(); snap.Pointer != 2 {
		t.Fatalf("pointer = %d, want 2", snap.Pointer)
	}
}

func TestStartWrapsToFirstSlot(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(6, 0, 0), clock.New(12, 0, 0), clock.New(18, 0, 0)), at(20, 0, 0))
	if d := h.nextWait(t); d != 10*time.Hour {
		t.Fatalf("first wait = %v, want 10h", d)
	}
	if snap := h.loop.Snapshot(); snap.Pointer != 0 {
		t.Fatalf("pointer = %d, want 0", snap.Pointer)
	}
}

func TestSlotsFireInRingOrder(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(6, 0, 0), clock.New(12, 0, 0), clock.New(18, 0, 0)), at(11, 0, 0))
	h.clk.AutoAdvance(true)

	want := []clock.Time{clock.New(12, 0, 0), clock.New(18, 0, 0), clock.New(6, 0, 0), clock.New(12, 0, 0)}
	for i, w := range want {
		h.nextWait(t)
		h.clk.Fire()
		if f := h.dispatched(t); f.slot != w {
			t.Fatalf("fire %d slot = %v, want %v", i, f.slot, w)
		}
	}
}

func TestSlotActionsDispatchedInOrder(t *testing.T) {
	t.Parallel()
	tbl := &schedule.Table{}
	slot := clock.New(7, 0, 0)
	tbl.Insert(slot, schedule.Action{Target: "broken", Kind: schedule.KindExecute, NotifyLead: schedule.LeadNone})
	tbl.Insert(slot, schedule.Action{Target: "broken", Kind: schedule.KindNotification, NotifyLead: schedule.LeadSynthetic})

	h := start(t, tbl, at(6, 0, 0))
	h.clk.AutoAdvance(true)
	h.nextWait(t)
	h.clk.Fire()

	first, second := h.dispatched(t), h.dispatched(t)
	if first.a.Kind != schedule.KindExecute || second.a.Kind != schedule.KindNotification {
		t.Fatalf("dispatch order = %v, %v", first.a.Kind, second.a.Kind)
	}
	if d := h.nextWait(t); d != clock.Day {
		t.Fatalf("next wait = %v, want %v", d, clock.Day)
	}
}

func TestResyncChunksLongWaits(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(9, 0, 0)), at(6, 0, 0), WithResync(time.Hour))
	h.clk.AutoAdvance(true)

	for i := 0; i < 3; i++ {
		if d := h.nextWait(t); d != time.Hour {
			t.Fatalf("chunk %d = %v, want 1h", i, d)
		}
		if h.disp.count() != 0 {
			t.Fatalf("fired early after chunk %d", i)
		}
		h.clk.Fire()
	}
	if f := h.dispatched(t); f.slot != clock.New(9, 0, 0) {
		t.Fatalf("dispatched %v", f.slot)
	}
}

func TestResyncFiresAfterForwardJump(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(9, 0, 0)), at(6, 0, 0), WithResync(time.Hour))

	if d := h.nextWait(t); d != time.Hour {
		t.Fatalf("first chunk = %v, want 1h", d)
	}
	h.clk.Set(at(9, 30, 0))
	h.clk.Fire()

	if f := h.dispatched(t); f.slot != clock.New(9, 0, 0) {
		t.Fatalf("dispatched %v", f.slot)
	}
}

func TestLateWakeSkipsMissedSlots(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(7, 0, 0), clock.New(8, 0, 0), clock.New(9, 0, 0)), at(6, 59, 58), WithResync(time.Minute))

	if d := h.nextWait(t); d != 2*time.Second {
		t.Fatalf("first wait = %v, want 2s", d)
	}
	h.clk.Set(at(8, 30, 0))
	h.clk.Fire()

	if d := h.nextWait(t); d != time.Minute {
		t.Fatalf("wait after re-seek = %v, want one 1m chunk", d)
	}
	snap := h.loop.Snapshot()
	if snap.Missed != 2 || snap.Pointer != 2 || snap.Fired != 0 {
		t.Fatalf("snapshot = %+v, want 2 missed and pointer at 09:00", snap)
	}
	if got := h.disp.count(); got != 0 {
		t.Fatalf("dispatch count = %d, want 0", got)
	}
}

func TestEarlyWakeWaitsOutRemainder(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(7, 0, 0)), at(6, 59, 58))

	if d := h.nextWait(t); d != 2*time.Second {
		t.Fatalf("first wait = %v, want 2s", d)
	}
	// Timer fires while the wall clock still reads just short of the slot.
	h.clk.Set(at(6, 59, 59).Add(999 * time.Millisecond))
	h.clk.Fire()

	if d := h.nextWait(t); d != time.Millisecond {
		t.Fatalf("wait after early wake = %v, want 1ms", d)
	}
	if got := h.disp.count(); got != 0 {
		t.Fatalf("dispatch count after early wake = %d, want 0", got)
	}

	h.clk.Set(at(7, 0, 0))
	h.clk.Fire()
	if f := h.dispatched(t); f.slot != clock.New(7, 0, 0) {
		t.Fatalf("dispatched %v", f.slot)
	}
	if d := h.nextWait(t); d != clock.Day {
		t.Fatalf("wait after firing = %v, want %v", d, clock.Day)
	}
	if got := h.disp.count(); got != 1 {
		t.Fatalf("dispatch count = %d, want 1", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	h := start(t, table(clock.New(7, 0, 0)), at(6, 0, 0))
	h.nextWait(t)
	h.cancel()
	select {
	case err := <-h.done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if snap := h.loop.Snapshot(); snap.State != StateIdle {
		t.Fatalf("state after stop = %v, want idle", snap.State)
	}
}

func TestRunClockUnavailable(t *testing.T) {
	t.Parallel()
	loop, err := New(table(clock.New(7, 0, 0)), newFakeDispatcher(), WithClock(clocktest.NewFake(time.Time{})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := loop.Run(context.Background()); !errors.Is(err, ErrClockUnavailable) {
		t.Fatalf("Run = %v, want ErrClockUnavailable", err)
	}
}

func TestNewRejectsEmptyTable(t *testing.T) {
	t.Parallel()
	if _, err := New(&schedule.Table{}, newFakeDispatcher()); !errors.Is(err, schedule.ErrEmptyTable) {
		t.Fatalf("New = %v, want ErrEmptyTable", err)
	}
}

func TestLateness(t *testing.T) {
	t.Parallel()
	cases := []struct {
		target clock.Time
		now    time.Time
		want   time.Duration
	}{
		{clock.New(7, 0, 0), at(7, 0, 0), 0},
		{clock.New(7, 0, 0), at(7, 0, 5), 5 * time.Second},
		{clock.New(7, 0, 0), at(6, 59, 59), 0},
		{clock.New(23, 59, 0), at(0, 1, 0), 2 * time.Minute},
	}
	for _, tc := range cases {
		if got := lateness(tc.target, tc.now); got != tc.want {
			t.Fatalf("lateness(%v, %v) = %v, want %v", tc.target, tc.now.Format(time.TimeOnly), got, tc.want)
		}
	}
}
