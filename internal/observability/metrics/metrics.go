// Package metrics exports scheduler and dispatch telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boomyouup"

// Metrics holds the collectors shared by the loop and the dispatch runner.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	slotsFired       prometheus.Counter
	slotsMissed      prometheus.Counter
	dispatched       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	inflight         prometheus.Gauge
	scheduleSlots    prometheus.Gauge
	nextSlotSeconds  prometheus.Gauge
	notifyThrottled  prometheus.Counter
}

// New registers the collectors on reg (the default registerer when nil).
// Collectors already registered by an earlier New are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		slotsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_fired_total",
			Help:      "Schedule slots fired by the dispatch loop.",
		}),
		slotsMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_missed_total",
			Help:      "Slots skipped after the loop woke up late.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by kind and result.",
		}, []string{"kind", "result"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Time from dispatch to action completion.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"kind"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actions_inflight",
			Help:      "Actions currently running.",
		}),
		scheduleSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedule_slots",
			Help:      "Slots in the expanded schedule table.",
		}),
		nextSlotSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_slot_seconds",
			Help:      "Seconds until the next slot, set when the loop starts waiting.",
		}),
		notifyThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_throttled_total",
			Help:      "Notifications that waited on the rate limiter.",
		}),
	}

	register := func(c prometheus.Collector) (prometheus.Collector, error) {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return are.ExistingCollector, nil
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
		return c, nil
	}

	var err error
	var c prometheus.Collector
	if c, err = register(m.slotsFired); err != nil {
		return nil, err
	}
	m.slotsFired = c.(prometheus.Counter)
	if c, err = register(m.slotsMissed); err != nil {
		return nil, err
	}
	m.slotsMissed = c.(prometheus.Counter)
	if c, err = register(m.dispatched); err != nil {
		return nil, err
	}
	m.dispatched = c.(*prometheus.CounterVec)
	if c, err = register(m.dispatchDuration); err != nil {
		return nil, err
	}
	m.dispatchDuration = c.(*prometheus.HistogramVec)
	if c, err = register(m.inflight); err != nil {
		return nil, err
	}
	m.inflight = c.(prometheus.Gauge)
	if c, err = register(m.scheduleSlots); err != nil {
		return nil, err
	}
	m.scheduleSlots = c.(prometheus.Gauge)
	if c, err = register(m.nextSlotSeconds); err != nil {
		return nil, err
	}
	m.nextSlotSeconds = c.(prometheus.Gauge)
	if c, err = register(m.notifyThrottled); err != nil {
		return nil, err
	}
	m.notifyThrottled = c.(prometheus.Counter)
	return m, nil
}

func (m *Metrics) SlotFired() {
	if m == nil {
		return
	}
	m.slotsFired.Inc()
}

func (m *Metrics) SlotsMissed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsMissed.Add(float64(n))
}

func (m *Metrics) ScheduleLoaded(slots int) {
	if m == nil {
		return
	}
	m.scheduleSlots.Set(float64(slots))
}

func (m *Metrics) Waiting(d time.Duration) {
	if m == nil {
		return
	}
	m.nextSlotSeconds.Set(d.Seconds())
}

// DispatchStarted marks an action as running. The returned func records
// the outcome and must be called exactly once.
func (m *Metrics) DispatchStarted(kind string) func(time.Duration, error) {
	if m == nil {
		return func(time.Duration, error) {}
	}
	m.inflight.Inc()
	return func(d time.Duration, err error) {
		m.inflight.Dec()
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.dispatched.WithLabelValues(kind, result).Inc()
		m.dispatchDuration.WithLabelValues(kind).Observe(d.Seconds())
	}
}

func (m *Metrics) NotificationThrottled() {
	if m == nil {
		return
	}
	m.notifyThrottled.Inc()
}
