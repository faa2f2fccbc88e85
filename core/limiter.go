package core

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter is a counting semaphore bounding how many workflow steps or tool
// calls may run at once. Acquire blocks until a permit is available or the
// context is cancelled; Release returns a permit, waking the oldest waiter.
// FIFO fairness is part of the contract (it prevents starvation under
// sustained load) and is provided by semaphore.Weighted, which queues
// waiters in arrival order.
type Limiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewLimiter creates a limiter with the given number of permits. Sizes below
// one are treated as one so a misconfigured limiter still makes progress.
func NewLimiter(size int) *Limiter {
	if size < 1 {
		size = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Acquire obtains a permit, blocking until one is available. It returns the
// context error if ctx is cancelled while waiting.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire obtains a permit without blocking, reporting success.
func (l *Limiter) TryAcquire() bool { return l.sem.TryAcquire(1) }

// Release returns a permit. Releasing more permits than were acquired is a
// caller bug and panics inside the underlying semaphore.
func (l *Limiter) Release() { l.sem.Release(1) }

// Size returns the configured number of permits.
func (l *Limiter) Size() int { return l.size }
