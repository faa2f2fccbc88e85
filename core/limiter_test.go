package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Acquire(ctx))
			defer limiter.Release()

			cur := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestLimiterTryAcquire(t *testing.T) {
	limiter := NewLimiter(1)

	assert.True(t, limiter.TryAcquire())
	assert.False(t, limiter.TryAcquire())

	limiter.Release()
	assert.True(t, limiter.TryAcquire())
}

func TestLimiterAcquireHonorsContext(t *testing.T) {
	limiter := NewLimiter(1)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterClampsSize(t *testing.T) {
	limiter := NewLimiter(0)

	assert.Equal(t, 1, limiter.Size())
	assert.True(t, limiter.TryAcquire())
	assert.False(t, limiter.TryAcquire())
}

func TestLimiterFIFOOrder(t *testing.T) {
	limiter := NewLimiter(1)
	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx))

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			require.NoError(t, limiter.Acquire(ctx))
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			limiter.Release()
		}(i)
		// Give each waiter time to enqueue before the next arrives.
		time.Sleep(20 * time.Millisecond)
	}

	limiter.Release()
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}
