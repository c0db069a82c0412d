package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/postpilot/models"
)

// withRetry runs op up to attempts times with exponential backoff. Dimension
// mismatches are configuration errors and never retried; exhausting retries
// converts the last error into StoreUnavailable.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, models.ErrDimensionMismatch) {
			return lastErr
		}
		if attempt < attempts-1 {
			select {
			case <-time.After(backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if errors.Is(lastErr, models.ErrStoreUnavailable) {
		return lastErr
	}
	return fmt.Errorf("%v: %w", lastErr, models.ErrStoreUnavailable)
}
