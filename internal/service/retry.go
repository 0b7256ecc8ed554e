package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// retryPolicy bounds a retried operation: at most Attempts tries, with
// exponential backoff starting at Backoff (doubling each retry).
type retryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// retryTransient runs fn up to policy.Attempts times, sleeping between tries.
// Only transient errors are retried; everything else, including context
// cancellation, returns immediately. The last error is returned when the
// attempt budget is exhausted.
func retryTransient(ctx context.Context, policy retryPolicy, fn func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := policy.Backoff
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperrors.Retryable(lastErr) || attempt == attempts {
			return lastErr
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "retry interrupted")
		}
		delay *= 2
	}
	return lastErr
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
