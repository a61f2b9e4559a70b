package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter backed by Redis so the count is
// shared across both entry protocols (and across instances).
type RedisLimiter struct {
	rdb    *redis.Client
	scope  string
	limit  int
	window time.Duration
}

var _ Limiter = &RedisLimiter{}

func NewRedisLimiter(rdb *redis.Client, scope string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		scope:  scope,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) key(identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.scope, identity)
}

func (l *RedisLimiter) Allow(ctx context.Context, identity string, cost int) (bool, time.Duration, error) {
	if cost <= 0 {
		cost = 1
	}
	key := l.key(identity)

	// INCRBY and EXPIRE ride the same pipeline so an expiry failure surfaces
	// instead of leaving a counter that refuses the identity forever. NX only
	// sets the expiry when the key has none, which both starts a fresh window
	// and heals a key that somehow lost its TTL.
	pipe := l.rdb.TxPipeline()
	incr := pipe.IncrBy(ctx, key, int64(cost))
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit incr: %w", err)
	}
	count := incr.Val()

	if count > int64(l.limit) {
		ttl, err := l.rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return false, ttl, nil
	}
	return true, 0, nil
}
