package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/observability"
	"github.com/prithvi-travels/helpdesk/internal/service"
)

type countingSweeper struct {
	calls atomic.Int32
	ran   chan struct{}
}

func (s *countingSweeper) Sweep(context.Context, time.Time) (service.SweepStats, error) {
	s.calls.Add(1)
	select {
	case s.ran <- struct{}{}:
	default:
	}
	return service.SweepStats{}, nil
}

func TestRunSweepsEagerlyThenStopsOnCancel(t *testing.T) {
	sweeper := &countingSweeper{ran: make(chan struct{}, 1)}
	worker := NewSweepWorker(sweeper, nil, observability.NewMetrics(), zap.NewNop(), config.SweepConfig{
		Enabled:         true,
		IntervalSeconds: 3600,
		LeaseSeconds:    3599,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	select {
	case <-sweeper.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("eager pass never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}

	if got := sweeper.calls.Load(); got != 1 {
		t.Errorf("sweep ran %d times, want 1", got)
	}
}

func TestRunDisabled(t *testing.T) {
	sweeper := &countingSweeper{ran: make(chan struct{}, 1)}
	worker := NewSweepWorker(sweeper, nil, observability.NewMetrics(), zap.NewNop(), config.SweepConfig{
		Enabled: false,
	})

	worker.Run(context.Background())
	if got := sweeper.calls.Load(); got != 0 {
		t.Errorf("disabled worker ran sweep %d times", got)
	}
}
