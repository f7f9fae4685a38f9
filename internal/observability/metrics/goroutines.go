package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// GoroutineCounts reports supervised goroutines at scrape time.
type GoroutineCounts func() (active int64, panics uint64)

// RegisterGoroutines exports the counters read from fn on reg (the default
// registerer when nil).
func RegisterGoroutines(reg prometheus.Registerer, fn GoroutineCounts) error {
	if fn == nil {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	active := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "goroutines_active",
		Help:      "Supervised goroutines running, in-flight actions included.",
	}, func() float64 {
		n, _ := fn()
		return float64(n)
	})
	panics := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "goroutine_panics_total",
		Help:      "Panics recovered in supervised goroutines.",
	}, func() float64 {
		_, n := fn()
		return float64(n)
	})
	for _, c := range []prometheus.Collector{active, panics} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metric: %w", err)
		}
	}
	return nil
}
