package aiquery

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	rl := NewRedisRateLimiter(rdb, 2)
	now := time.Date(2026, 2, 13, 10, 45, 0, 0, time.UTC)
	ctx := context.Background()

	allowed, used, err := rl.Allow(ctx, "user-1", now)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, used)

	allowed, used, err = rl.Allow(ctx, "user-1", now)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 2, used)

	allowed, used, err = rl.Allow(ctx, "user-1", now)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.EqualValues(t, 3, used)

	key := "aiquery:crossorg:user-1:2026021310"
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 15*time.Minute, mr.TTL(key))

	allowed, _, err = rl.Allow(ctx, "user-2", now)
	require.NoError(t, err)
	assert.True(t, allowed, "counters are per user")
}

func TestRedisRateLimiter_NewWindow(t *testing.T) {
	_, rdb := newMiniRedis(t)
	rl := NewRedisRateLimiter(rdb, 1)
	ctx := context.Background()
	now := time.Date(2026, 2, 13, 10, 59, 0, 0, time.UTC)

	allowed, _, err := rl.Allow(ctx, "user-1", now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = rl.Allow(ctx, "user-1", now)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, used, err := rl.Allow(ctx, "user-1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.EqualValues(t, 1, used)
}

func TestRedisRateLimiter_Disabled(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 0)
	allowed, used, err := rl.Allow(context.Background(), "user-1", time.Now())
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, used)
}

func TestRedisRateLimiter_Unavailable(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	mr.Close()

	rl := NewRedisRateLimiter(rdb, 5)
	_, _, err := rl.Allow(context.Background(), "user-1", time.Now())
	assert.Error(t, err)
}
