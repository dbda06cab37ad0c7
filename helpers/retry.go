package helpers

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff calls fn until it succeeds or maxRetries retries are used up.
// The wait doubles after every failed attempt, starting at base.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		// Don't wait after the last attempt
		if attempt == maxRetries {
			break
		}

		backoff := base * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
