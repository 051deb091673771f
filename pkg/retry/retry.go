// Package retry provides bounded retry with exponential backoff for calls
// to external collaborators. Failures are always surfaced after the last
// attempt, never swallowed.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls retry behaviour.
type Config struct {
	// MaxAttempts is the total number of calls including the first attempt.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay seeds the backoff: the wait after attempt n is
	// BaseDelay << (n-1), i.e. it doubles each time.
	BaseDelay time.Duration
	// OnRetry, when set, is called after each failed attempt except the
	// last. attempt is 1-indexed.
	OnRetry func(attempt int, err error)
}

// Do calls fn until it succeeds or cfg.MaxAttempts is exhausted. It returns
// nil on the first success, the last error otherwise. Waiting between
// attempts respects ctx cancellation.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		delay := cfg.BaseDelay << (attempt - 1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		}
	}
	return lastErr
}
