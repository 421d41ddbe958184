package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares the per-key window across replicas using SET NX with expiry
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

// NewRedis creates a distributed limiter on an existing client
func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		minInterval: minInterval,
	}
}

// Allow claims the key for minInterval. Redis errors fail open.
func (l *RedisLimiter) Allow(key string) bool {
	if l.minInterval <= 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, time.Now().Unix(), l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

// Reset releases the key immediately
func (l *RedisLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.client.Del(ctx, l.prefix+key)
}

var _ RateLimiter = (*RedisLimiter)(nil)
