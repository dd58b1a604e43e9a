package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis backs the rate-limit counters. Nil when REDIS_ADDR is not set; the
// limiter then falls back to its in-process store.
var Redis *redis.Client

// InitRedis connects to Redis when configured. Failure to reach it is not
// fatal — throttling degrades to per-instance counters.
func InitRedis() {
	if App == nil || App.RedisAddr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr: App.RedisAddr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unreachable at %s, falling back to in-process rate limiting: %v", App.RedisAddr, err)
		Redis = nil
		return
	}
	Redis = client
}
