package storage

import (
	"context"
	"time"
)

const defaultStorageTimeout = 5 * time.Second

// withStorageTimeout bounds a backend call unless the caller's deadline is
// already tighter.
func withStorageTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		d = defaultStorageTimeout
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
