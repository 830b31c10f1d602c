package retry

import (
	"context"
	"time"
)

// BackoffFunc returns the delay to wait before the retry following the given
// attempt. Attempts are numbered from 1.
type BackoffFunc func(attempt int) time.Duration

// Linear returns backoffs growing as an attempt-indexed multiple of base:
// base after the first failure, 2*base after the second, and so on.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Policy is a bounded retry policy. The extraction and download paths share
// one policy so transient upstream failures are handled the same way in both.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, not wall-clock time.
	// Values below 1 behave as 1.
	MaxAttempts int
	// Backoff computes the sleep between attempts. Nil means no sleep.
	Backoff BackoffFunc
	// Retryable decides whether an error is worth another attempt.
	// Nil means nothing is retried.
	Retryable func(error) bool
	// OnRetry, when set, is invoked before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds, fails terminally, or the attempt budget is
// exhausted. Context cancellation interrupts the backoff sleep.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		if attempt == attempts || p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}
