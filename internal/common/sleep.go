package common

import (
	"context"
	"time"
)

// SleepFunc pauses for d or until ctx is done. Swapped for a no-op in tests.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext waits for d, returning ctx.Err() early if ctx is cancelled.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
