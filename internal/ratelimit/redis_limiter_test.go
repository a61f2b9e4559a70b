package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, limit int, window time.Duration) (*miniredis.Miniredis, *RedisLimiter) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return srv, NewRedisLimiter(rdb, "question", limit, window)
}

func TestRedisLimiterAllowsUpToLimit(t *testing.T) {
	_, l := newRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1", 1)
		require.NoError(t, err)
		assert.True(t, ok, "request %d within the limit must pass", i+1)
	}

	ok, retryAfter, err := l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, time.Minute)
}

func TestRedisLimiterWindowRollover(t *testing.T) {
	srv, l := newRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	require.False(t, ok)

	srv.FastForward(time.Minute + time.Second)

	ok, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, ok, "a fresh window starts after the previous one expires")
}

func TestRedisLimiterAlwaysArmsExpiry(t *testing.T) {
	srv, l := newRedisLimiter(t, 5, time.Minute)
	ctx := context.Background()
	key := "ratelimit:question:10.0.0.1"

	_, _, err := l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.Greater(t, srv.TTL(key), time.Duration(0), "the first hit must start the window expiry")

	// A counter that lost its TTL would otherwise refuse the identity
	// forever; the next hit must re-arm it. PERSIST drops the TTL entry
	// entirely — miniredis treats SetTTL(key, 0) as a present (zero) expiry,
	// which EXPIRE NX would refuse to overwrite.
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer rdb.Close()
	require.NoError(t, rdb.Persist(ctx, key).Err())
	_, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.Greater(t, srv.TTL(key), time.Duration(0))
}

func TestRedisLimiterSurfacesStoreErrors(t *testing.T) {
	srv, l := newRedisLimiter(t, 5, time.Minute)
	srv.Close()

	ok, _, err := l.Allow(context.Background(), "10.0.0.1", 1)
	assert.Error(t, err, "callers decide fail-open on a returned error")
	assert.False(t, ok)
}
