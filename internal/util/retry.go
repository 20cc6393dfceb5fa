package util

import (
	"context"
	"time"
)

// maxRetryDelay bounds the exponential backoff between attempts.
const maxRetryDelay = 30 * time.Second

// Retry invokes fn until it succeeds, giving up after maxAttempts calls. The
// wait between attempts starts at baseDelay and doubles each time, capped at
// maxRetryDelay. Cancellation is honoured while waiting; when every attempt
// fails the error from the last one is returned.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}
