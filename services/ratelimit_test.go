package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterBudget(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := limiter.Check(ctx, "1.2.3.4", "coupon_verify", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
	}

	res, err := limiter.Check(ctx, "1.2.3.4", "coupon_verify", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0), "a denial always carries retry-after")
}

func TestRateLimiterIndependentCounters(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	// Exhaust one key/action pair.
	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "1.2.3.4", "settle", 2, time.Minute)
	}

	// A different key for the same action is untouched.
	res, err := limiter.Check(ctx, "5.6.7.8", "settle", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// The same key for a different action is untouched.
	res, err = limiter.Check(ctx, "1.2.3.4", "coupon_verify", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	res, _ := limiter.Check(ctx, "k", "a", 1, 20*time.Millisecond)
	assert.True(t, res.Allowed)
	res, _ = limiter.Check(ctx, "k", "a", 1, 20*time.Millisecond)
	assert.False(t, res.Allowed)

	time.Sleep(25 * time.Millisecond)

	res, _ = limiter.Check(ctx, "k", "a", 1, 20*time.Millisecond)
	assert.True(t, res.Allowed, "counter resets once the window elapses")
}

func TestRateLimiterConcurrent(t *testing.T) {
	limiter := NewRateLimiter(nil)
	ctx := context.Background()

	const limit = 10
	const attempts = 100
	var allowed int64
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Check(ctx, "burst", "settle", limit, time.Minute)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), allowed, "exactly the budget passes regardless of arrival order")
}

func TestRateLimiterZeroLimitDisabled(t *testing.T) {
	limiter := NewRateLimiter(nil)
	res, err := limiter.Check(context.Background(), "k", "a", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a zero limit disables throttling for the action")
}
