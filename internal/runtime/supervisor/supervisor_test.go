package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGoRecoversPanic(t *testing.T) {
	sup := NewSupervisor(context.Background())
	sup.Go0("boom", func(ctx context.Context) { panic("kaboom") })
	sup.Go0("fine", func(ctx context.Context) {})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	c := sup.Counters()
	if c.Started != 2 || c.Panics != 1 || c.Active != 0 {
		t.Fatalf("counters = %+v", c)
	}
}

func TestCancelOnError(t *testing.T) {
	sup := NewSupervisor(context.Background(), WithCancelOnError(true))
	wantErr := errors.New("clock gone")
	sup.Go("loop", func(ctx context.Context) error { return wantErr })

	select {
	case <-sup.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("context not cancelled after error")
	}
	if !errors.Is(sup.Err(), wantErr) {
		t.Fatalf("Err = %v, want wrapping %v", sup.Err(), wantErr)
	}
}

func TestStatsAggregateByName(t *testing.T) {
	sup := NewSupervisor(context.Background())
	for i := 0; i < 3; i++ {
		sup.Go("dispatch:execute", func(ctx context.Context) error { return nil })
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	stats := sup.Stats()
	if len(stats) != 1 || stats[0].Started != 3 || stats[0].Active != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
