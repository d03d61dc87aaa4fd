// Package ratelimit implements a fixed-window request counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Limiter counts hits per key inside fixed windows.
type Limiter struct {
	client *redis.Client
	prefix string
}

// NewLimiter creates a limiter whose keys start with prefix.
func NewLimiter(client *redis.Client, prefix string) *Limiter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &Limiter{client: client, prefix: prefix}
}

// Allow records a hit for key and reports whether it is within limit for the current window.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	redisKey := l.prefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire %s: %w", redisKey, err)
		}
	}
	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("pttl %s: %w", redisKey, err)
	}
	if ttl < 0 {
		// counter lost its expiry; start a new window
		_ = l.client.PExpire(ctx, redisKey, window).Err()
		ttl = window
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   int(count) <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}
