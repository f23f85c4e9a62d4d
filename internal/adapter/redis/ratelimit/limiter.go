// Package ratelimit is a fixed-window request counter kept in Redis so every node shares it.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "coderunner:ratelimit:"

type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type Limiter struct {
	redisClient *redis.Client
	max         int
	window      time.Duration
}

func NewLimiter(redisClient *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{redisClient: redisClient, max: max, window: window}
}

func (l *Limiter) Max() int {
	return l.max
}

// Allow counts one request for key in the current window
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := keyPrefix + key

	count, err := l.redisClient.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count request: %w", err)
	}
	ttl, err := l.redisClient.TTL(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read window: %w", err)
	}
	// first hit of a window, or a counter left without expiry
	if count == 1 || ttl < 0 {
		if err := l.redisClient.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to start window: %w", err)
		}
		ttl = l.window
	}

	remaining := l.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   int(count) <= l.max,
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}
