package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter("upload", 3, time.Minute)
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

func TestMemoryLimiterIsolatesIdentities(t *testing.T) {
	l := NewMemoryLimiter("question", 1, time.Minute)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, ok, "second request from the same identity must be refused")

	ok, _, err = l.Allow(ctx, "10.0.0.2", 1)
	require.NoError(t, err)
	assert.True(t, ok, "a different identity has its own window")
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	l := NewMemoryLimiter("upload", 1, 50*time.Millisecond)
	ctx := context.Background()

	ok, _, err := l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(80 * time.Millisecond)

	ok, _, err = l.Allow(ctx, "10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, ok, "a fresh window starts after the previous one expires")
}

func TestMemoryLimiterDefaultsZeroCostToOne(t *testing.T) {
	l := NewMemoryLimiter("upload", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1", 0)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, _, err := l.Allow(ctx, "10.0.0.1", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
