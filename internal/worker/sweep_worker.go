package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prithvi-travels/helpdesk/internal/config"
	"github.com/prithvi-travels/helpdesk/internal/observability"
	"github.com/prithvi-travels/helpdesk/internal/persistence"
	"github.com/prithvi-travels/helpdesk/internal/service"
)

const sweepLeaseKey = "helpdesk:sweep:lease"

// Sweeper runs one auto-closure pass at the given instant.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (service.SweepStats, error)
}

// SweepWorker triggers the auto-closure sweep: once eagerly on startup,
// then on a fixed wall-clock interval until the context is cancelled.
type SweepWorker struct {
	sweeper Sweeper
	redis   *persistence.Redis
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     config.SweepConfig
}

// NewSweepWorker constructs the worker.
func NewSweepWorker(sweeper Sweeper, redis *persistence.Redis, metrics *observability.Metrics, logger *zap.Logger, cfg config.SweepConfig) *SweepWorker {
	return &SweepWorker{
		sweeper: sweeper,
		redis:   redis,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run blocks until ctx is cancelled.
func (w *SweepWorker) Run(ctx context.Context) {
	if !w.cfg.Enabled {
		w.logger.Info("sweep disabled")
		return
	}

	w.runOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	if !w.acquireLease(ctx) {
		w.logger.Debug("sweep lease held elsewhere; skipping pass")
		return
	}

	stats, err := w.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		// The next tick re-queries; eligible tickets are never lost.
		w.logger.Warn("sweep pass failed", zap.Error(err))
		return
	}
	w.metrics.RecordSweep(stats.Scanned, stats.Closed, stats.Skipped, stats.Failed)
	if stats.Scanned > 0 {
		w.logger.Info("sweep pass",
			zap.Int("scanned", stats.Scanned),
			zap.Int("closed", stats.Closed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed))
	}
}

// acquireLease takes a short Redis lease so that at most one instance runs
// a given pass. Without Redis the worker assumes it is the only instance.
func (w *SweepWorker) acquireLease(ctx context.Context) bool {
	if w.redis == nil || w.redis.Client == nil {
		return true
	}
	ok, err := w.redis.Client.SetNX(ctx, sweepLeaseKey, "1", w.cfg.Lease()).Result()
	if err != nil {
		w.logger.Warn("sweep lease check failed; proceeding", zap.Error(err))
		return true
	}
	return ok
}
