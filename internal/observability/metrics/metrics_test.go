package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	logx "boomyouup/pkg/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDispatchCounters(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := m.DispatchStarted("execute")
	if got := testutil.ToFloat64(m.inflight); got != 1 {
		t.Fatalf("inflight = %v, want 1", got)
	}
	done(time.Second, nil)
	m.DispatchStarted("execute")(time.Second, errors.New("boom"))
	m.SlotFired()
	m.SlotsMissed(3)
	m.SlotsMissed(0)

	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Fatalf("inflight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.dispatched.WithLabelValues("execute", "ok")); got != 1 {
		t.Fatalf("ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatched.WithLabelValues("execute", "error")); got != 1 {
		t.Fatalf("error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.slotsFired); got != 1 {
		t.Fatalf("slots fired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.slotsMissed); got != 3 {
		t.Fatalf("slots missed = %v, want 3", got)
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	a, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	a.SlotFired()
	if got := testutil.ToFloat64(b.slotsFired); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.SlotFired()
	m.SlotsMissed(1)
	m.ScheduleLoaded(4)
	m.Waiting(time.Minute)
	m.NotificationThrottled()
	m.DispatchStarted("execute")(0, nil)
}

func TestServerApplyEnableDisable(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ScheduleLoaded(5)

	srv := NewServer(reg, logx.Nop())
	t.Cleanup(func() { srv.Stop(context.Background()) })

	ctx := context.Background()
	if err := srv.Apply(ctx, ServerConfig{Enabled: true, Addr: "127.0.0.1:0"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatalf("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "boomyouup_schedule_slots 5") {
		t.Fatalf("metrics body missing schedule gauge:\n%s", body)
	}

	if err := srv.Apply(ctx, ServerConfig{Enabled: false}); err != nil {
		t.Fatalf("Apply disable: %v", err)
	}
	if got := srv.Addr(); got != "" {
		t.Fatalf("Addr after disable = %q, want empty", got)
	}
}

func TestRegisterGoroutines(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	active, panics := int64(3), uint64(1)
	if err := RegisterGoroutines(reg, func() (int64, uint64) { return active, panics }); err != nil {
		t.Fatalf("RegisterGoroutines: %v", err)
	}

	want := `
# HELP boomyouup_goroutine_panics_total Panics recovered in supervised goroutines.
# TYPE boomyouup_goroutine_panics_total counter
boomyouup_goroutine_panics_total 1
# HELP boomyouup_goroutines_active Supervised goroutines running, in-flight actions included.
# TYPE boomyouup_goroutines_active gauge
boomyouup_goroutines_active 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "boomyouup_goroutines_active", "boomyouup_goroutine_panics_total"); err != nil {
		t.Fatalf("gather: %v", err)
	}
	if err := RegisterGoroutines(reg, func() (int64, uint64) { return 0, 0 }); err == nil {
		t.Fatalf("second RegisterGoroutines on the same registry succeeded")
	}
}
