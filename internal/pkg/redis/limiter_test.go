package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestFixedWindowLimiterBlocksAfterLimit(t *testing.T) {
	mr, rdb := newTestClient(t)
	limiter := NewFixedWindowLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "rate:test", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i+1)
	}

	ok, err := limiter.Allow(ctx, "rate:test", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = limiter.Allow(ctx, "rate:test", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixedWindowLimiterDisabled(t *testing.T) {
	_, rdb := newTestClient(t)
	limiter := NewFixedWindowLimiter(rdb)

	ok, err := limiter.Allow(context.Background(), "rate:off", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLockIsExclusive(t *testing.T) {
	_, rdb := newTestClient(t)
	Rdb = rdb
	ctx := context.Background()

	ok, err := TryLock(ctx, "lock:a", "owner-1", time.Minute, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TryLock(ctx, "lock:a", "owner-2", time.Minute, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	UnLock(ctx, "lock:a", "owner-2")
	val, _ := GetValue(ctx, "lock:a")
	assert.Equal(t, "owner-1", val)

	UnLock(ctx, "lock:a", "owner-1")
	val, _ = GetValue(ctx, "lock:a")
	assert.Equal(t, "", val)
}
