package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

const (
	flushInterval = 60 * time.Second
	sweepInterval = 5 * time.Minute
)

// runBackgroundSweeps periodically flushes session counters to the
// database and ends sessions that have gone idle, until ctx is
// cancelled. Both are best-effort: a failed tick is logged and retried
// on the next interval rather than aborting the process.
func runBackgroundSweeps(ctx context.Context, orch *orchestrator.Orchestrator, logger *zap.Logger) {
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := orch.FlushAll(context.Background()); err != nil {
				logger.Warn("final session flush failed", zap.Error(err))
			}
			return
		case <-flushTicker.C:
			if err := orch.FlushAll(ctx); err != nil {
				logger.Warn("periodic session flush failed", zap.Error(err))
			}
		case <-sweepTicker.C:
			if err := orch.SweepIdle(ctx); err != nil {
				logger.Warn("idle session sweep failed", zap.Error(err))
			}
		}
	}
}
