package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKeyPrefix prefixes every counter key.
const RedisKeyPrefix = "ratelimit:"

// RedisFixedWindow is a Limiter shared by every process using the same Redis.
// The window starts with the first request and expires with the key.
type RedisFixedWindow struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// NewRedisFixedWindow allows limit requests per identity per window.
func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{
		redis:  client,
		limit:  limit,
		window: window,
	}
}

// Window returns the configured window length.
func (r *RedisFixedWindow) Window() time.Duration {
	return r.window
}

// Allow implements Limiter. SET NX creates the counter with its expiry only
// for the first request of a window; INCR keeps the TTL. Both run in one
// MULTI/EXEC so concurrent callers never undercount.
func (r *RedisFixedWindow) Allow(ctx context.Context, identity string) error {
	key := RedisKeyPrefix + identity

	pipe := r.redis.TxPipeline()
	pipe.SetNX(ctx, key, 0, r.window)
	incr := pipe.Incr(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rate limit pipeline: %w", err)
	}

	if incr.Val() > int64(r.limit) {
		return ErrRateLimited
	}
	return nil
}
