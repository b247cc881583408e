package consult

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// RetryConfig parameterizes the backoff discipline around the reasoning
// backend. The policy never retries indefinitely: at most MaxRetries+1
// attempts are made.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// transientError marks a failure worth retrying (timeout, rate limit,
// server-side error). Anything else is terminal.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs fn under the backoff policy. Only transient errors are
// retried; the last error is returned once the ceiling is reached.
func withRetry(ctx context.Context, cfg RetryConfig, log *logger.Logger, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxRetries+1; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries+1 {
			break
		}

		delay := backoffDelay(cfg, attempt)
		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
			"error":   lastErr.Error(),
		}).Warn("Reasoning call failed, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoffDelay computes base * 2^(attempt-1) capped at MaxDelay, plus
// uniform jitter in [0, delay/2) so concurrent items do not retry in
// lockstep.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}

	if delay <= 0 {
		return 0
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
