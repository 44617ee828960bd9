package database

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// retryPolicy retries startup work with exponential backoff. Delays double
// from base on every attempt and are spread by ±jitter of their length.
type retryPolicy struct {
	attempts int
	base     time.Duration
	jitter   float64
	// retryable reports whether err is worth another attempt. Nil retries
	// every error.
	retryable func(error) bool
}

// startupRetry covers dialing backends when a service boots: 1s, 2s.
var startupRetry = retryPolicy{attempts: 3, base: time.Second, jitter: 0.25}

// migrationRetry only retries connection problems. SQL errors fail fast.
var migrationRetry = retryPolicy{attempts: 3, base: time.Second, jitter: 0.25, retryable: isConnectionError}

func (p retryPolicy) delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.base << attempt
	spread := float64(d) * p.jitter * (2*rand.Float64() - 1) // #nosec G404 -- jitter only
	return d + time.Duration(spread)
}

// run calls fn until it succeeds, returns a non-retryable error, or the
// policy runs out of attempts. what names the operation in logs and errors.
func (p retryPolicy) run(ctx context.Context, what string, logger *slog.Logger, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if p.retryable != nil && !p.retryable(err) {
			return err
		}
		if attempt == p.attempts-1 {
			break
		}

		wait := p.delay(attempt)
		if logger != nil {
			logger.Warn(what+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", p.attempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: gave up after attempt %d: %w", what, attempt+1, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, p.attempts, err)
}
