package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn up to attempts times, doubling the wait after each failure.
// It gives up early when ctx is done.
func Retry(ctx context.Context, attempts int, initialBackoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := initialBackoff
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted after %d attempts: %w", i, err)
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
