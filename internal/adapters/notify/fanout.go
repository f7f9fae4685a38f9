// Package notify fans a notification out to every configured sink behind a
// shared rate limit.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boomyouup/internal/observability/metrics"
	logx "boomyouup/pkg/logx"

	"golang.org/x/time/rate"
)

// Sink is one notification backend.
type Sink interface {
	Notify(ctx context.Context, appName, summary, body string) error
}

// Named attaches a name to a sink for logs and errors.
type Named struct {
	Name string
	Sink Sink
}

// Fanout delivers to all sinks and succeeds if at least one did.
type Fanout struct {
	sinks   []Named
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     logx.Logger
}

// ErrNoSinks is returned by Notify when nothing is configured.
var ErrNoSinks = errors.New("notify: no sinks configured")

// New builds a fan-out. perSecond <= 0 disables rate limiting; the burst
// allows one notification per sink at once.
func New(sinks []Named, perSecond float64, m *metrics.Metrics, log logx.Logger) *Fanout {
	if log.IsZero() {
		log = logx.Nop()
	}
	f := &Fanout{sinks: sinks, metrics: m, log: log.With(logx.String("comp", "notify"))}
	if perSecond > 0 {
		burst := len(sinks)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return f
}

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Notify(ctx context.Context, appName, summary, body string) error {
	if len(f.sinks) == 0 {
		return ErrNoSinks
	}
	if err := f.wait(ctx); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Sink.Notify(ctx, appName, summary, body); err != nil {
			f.log.Warn("sink failed", logx.String("sink", s.Name), logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	if len(errs) == len(f.sinks) {
		return errors.Join(errs...)
	}
	return nil
}

func (f *Fanout) wait(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	r := f.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate limit burst exceeded")
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	f.metrics.NotificationThrottled()
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
