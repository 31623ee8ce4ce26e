package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 500 * time.Millisecond
)

// WithRetry runs fn, retrying transient gateway failures with jittered
// exponential backoff. Non-transient failures return immediately.
func WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(defaultRetryBase)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(defaultRetryAttempts, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		wrapped := WrapError(err)
		var typed *Error
		if errors.As(wrapped, &typed) && typed.Retryable() {
			return retry.RetryableError(wrapped)
		}
		return wrapped
	})
}
