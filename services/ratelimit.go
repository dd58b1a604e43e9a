package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitResult is a structured throttling decision. A denied check always
// carries RetryAfter so the caller can return it instead of silently
// dropping the request.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// RateLimiter throttles per (key, action) with fixed windows, so exhausting
// one subject or action never affects another. Counters live in Redis when a
// client is configured (the increment-and-expire is atomic across replicas);
// without one it falls back to an in-process store, which is only sound for
// a single instance and for tests.
type RateLimiter struct {
	rdb *redis.Client

	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	count   int64
	resetAt time.Time
}

// NewRateLimiter builds a limiter; rdb may be nil for the in-memory fallback.
func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{
		rdb:     rdb,
		windows: make(map[string]*fixedWindow),
	}
}

// Check consumes one unit of the (key, action) budget.
func (l *RateLimiter) Check(ctx context.Context, key, action string, limit int64, window time.Duration) (RateLimitResult, error) {
	if limit <= 0 || window <= 0 {
		return RateLimitResult{Allowed: true}, nil
	}
	counter := fmt.Sprintf("ratelimit:%s:%s", action, key)
	if l.rdb != nil {
		return l.checkRedis(ctx, counter, limit, window)
	}
	return l.checkMemory(counter, limit, window), nil
}

func (l *RateLimiter) checkRedis(ctx context.Context, counter string, limit int64, window time.Duration) (RateLimitResult, error) {
	count, err := l.rdb.Incr(ctx, counter).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, counter, window).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}
	if count <= limit {
		return RateLimitResult{Allowed: true, Remaining: limit - count}, nil
	}
	ttl, err := l.rdb.TTL(ctx, counter).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return RateLimitResult{RetryAfter: ttl}, nil
}

func (l *RateLimiter) checkMemory(counter string, limit int64, window time.Duration) RateLimitResult {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[counter]
	if !ok || !now.Before(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(window)}
		l.windows[counter] = w
	}
	w.count++
	if w.count <= limit {
		return RateLimitResult{Allowed: true, Remaining: limit - w.count}
	}
	return RateLimitResult{RetryAfter: w.resetAt.Sub(now)}
}
