// Package resilience provides the bounded retry executor used around
// backend connection attempts, plus the error classification that decides
// which failures are worth retrying at all.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Options configures a retry sequence. Zero fields take the defaults
// below, so callers can set only what they care about.
type Options struct {
	MaxAttempts     int           // total attempts, including the first (default 3)
	BaseDelay       time.Duration // delay after the first failure (default 1s)
	MaxDelay        time.Duration // cap applied to every computed delay (default 10s)
	ExponentialBase float64       // growth factor between attempts (default 2)
	Jitter          bool          // perturb each delay by up to ±20%

	// Sleep waits between attempts. Nil uses a context-aware timer; tests
	// inject a recording function here.
	Sleep func(context.Context, time.Duration) error
}

// DefaultOptions returns the standard retry configuration. Jitter is on
// so that many clients failing at the same moment do not hammer the
// backend in lockstep when they come back.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2,
		Jitter:          true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = d.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = d.MaxDelay
	}
	if o.ExponentialBase <= 0 {
		o.ExponentialBase = d.ExponentialBase
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

// Delay computes the wait after failed attempt i (zero-based):
// min(base * exponentialBase^i, max), perturbed by up to ±20% when jitter
// is enabled and floored at zero.
func (o Options) Delay(attempt int) time.Duration {
	d := float64(o.BaseDelay) * math.Pow(o.ExponentialBase, float64(attempt))
	if d > float64(o.MaxDelay) {
		d = float64(o.MaxDelay)
	}
	if o.Jitter {
		d *= 1 + (rand.Float64()*0.4 - 0.2)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do runs op up to opts.MaxAttempts times. Terminal errors (see
// Retryable) propagate immediately; transient and unrecognized errors are
// retried, each retry logged so operators can audit retries that mask a
// deeper problem. After the final attempt the last error is returned
// unchanged, never wrapped, so the root cause stays visible.
func Do[T any](ctx context.Context, opts Options, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Retryable(err) {
			logger.Debug("operation failed with terminal error",
				zap.Int("attempt", attempt+1), zap.Error(err))
			return zero, err
		}
		if attempt == opts.MaxAttempts-1 {
			break
		}

		delay := opts.Delay(attempt)
		logger.Warn("operation failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", opts.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := opts.Sleep(ctx, delay); err != nil {
			// Interrupted mid-wait; the last operation error is still the
			// root cause worth reporting.
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
