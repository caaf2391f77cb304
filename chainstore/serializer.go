package chainstore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// writeSerializer is a binary semaphore guaranteeing at-most-one in-flight
// mutation at any time. semaphore.Weighted admits FIFO, which is exactly
// the "Acquires are FIFO" requirement; the single token is released in a
// defer so it fires on success, error, and panic alike.
type writeSerializer struct {
	sem *semaphore.Weighted
}

func newWriteSerializer() *writeSerializer {
	return &writeSerializer{sem: semaphore.NewWeighted(1)}
}

// lockedMutation acquires the single token, invokes fn, and releases the
// token on every termination path before returning fn's result.
func (w *writeSerializer) lockedMutation(ctx context.Context, fn func() error) error {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.sem.Release(1)
	return fn()
}
