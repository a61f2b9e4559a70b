package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter is a fixed-window counter backed by go-cache, used when no
// Redis is reachable and in tests. Stale buckets are evicted once the window
// elapses.
type MemoryLimiter struct {
	buckets *cache.Cache
	scope   string
	limit   int
	window  time.Duration
}

var _ Limiter = &MemoryLimiter{}

func NewMemoryLimiter(scope string, limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: cache.New(window, 2*window),
		scope:   scope,
		limit:   limit,
		window:  window,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, identity string, cost int) (bool, time.Duration, error) {
	if cost <= 0 {
		cost = 1
	}
	key := fmt.Sprintf("%s:%s", l.scope, identity)

	var count int64
	for {
		if err := l.buckets.Add(key, int64(cost), l.window); err == nil {
			count = int64(cost)
			break
		}
		n, err := l.buckets.IncrementInt64(key, int64(cost))
		if err != nil {
			// Bucket expired between Add and Increment; start a new window.
			continue
		}
		count = n
		break
	}

	if count > int64(l.limit) {
		retryAfter := l.window
		if _, expiry, ok := l.buckets.GetWithExpiration(key); ok && !expiry.IsZero() {
			retryAfter = time.Until(expiry)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}
