package upstream

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the retry loop around each backend request.
type RetryConfig struct {
	MaxAttempts    int           // total attempts, first one included
	InitialBackoff time.Duration // doubled after every failed attempt
	MaxBackoff     time.Duration
}

// DefaultRetryConfig is 3 attempts with backoff 500ms, 1s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     4 * time.Second,
	}
}

// withDefaults fills only the fields left at zero, so a configured backoff
// survives an unset attempt count.
func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	return c
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff < 0 {
		c.InitialBackoff = 0
	}
	if c.MaxBackoff > 0 && c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	return c
}

// Backoff returns the wait after the given zero-based failed attempt.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if c.MaxBackoff > 0 && d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// withRetry runs fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The last error is returned as is.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return &Error{Kind: kindOfTransportError(err), Op: op, Err: err}
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("upstream retry succeeded", zap.String("op", op), zap.Int("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := cfg.Backoff(attempt)
		logger.Warn("upstream attempt failed",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
