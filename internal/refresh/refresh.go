// Package refresh runs a job on a fixed interval until its context ends.
package refresh

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is one refresh pass. Errors are logged; the loop keeps going.
type Job func(ctx context.Context) error

// Run executes job once immediately and then every interval. It blocks
// until ctx is cancelled.
func Run(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, job Job) {
	if interval <= 0 {
		interval = time.Minute
	}
	logger = logger.With(zap.String("job", name))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("refresh: started", zap.Duration("interval", interval))
	runOnce(ctx, logger, job)

	for {
		select {
		case <-ctx.Done():
			logger.Info("refresh: stopping")
			return
		case <-ticker.C:
			runOnce(ctx, logger, job)
		}
	}
}

func runOnce(ctx context.Context, logger *zap.Logger, job Job) {
	start := time.Now()
	if err := job(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("refresh: pass failed", zap.Error(err))
		return
	}
	logger.Debug("refresh: pass done", zap.Duration("took", time.Since(start)))
}
