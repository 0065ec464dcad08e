package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps fixed-window counts in Redis so several processes share
// one budget per client.
type RedisCounter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisCounter builds a counter writing keys under prefix.
func NewRedisCounter(client redis.Cmdable, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// Increment implements Counter. INCR is atomic; the expiry is only set by the
// hit that opened the window.
func (r *RedisCounter) Increment(ctx context.Context, key string, length time.Duration) (int64, time.Time, error) {
	fullKey := r.prefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, length)
	ttl := pipe.PTTL(ctx, fullKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	remaining := ttl.Val()
	if remaining <= 0 {
		// Key survived without an expiry; repair it so the client is not
		// locked out forever.
		if err := r.client.PExpire(ctx, fullKey, length).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
		remaining = length
	}
	return incr.Val(), time.Now().Add(remaining), nil
}
