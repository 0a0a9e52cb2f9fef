package media

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCooldownThrottlesSecondAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cd := NewRedisCooldown(rdb, 5*time.Minute)

	ctx := context.Background()

	ok, err := cd.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cd.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, ok, "second attempt within the window must be throttled")

	// a different message is unaffected
	ok, err = cd.TryAcquire(ctx, "msg-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCooldownExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cd := NewRedisCooldown(rdb, time.Minute)

	ctx := context.Background()

	ok, _ := cd.TryAcquire(ctx, "msg-1")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err := cd.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, ok, "window elapsed, attempt allowed again")
}

func TestMemoryCooldown(t *testing.T) {
	cd := NewMemoryCooldown(time.Minute)
	ctx := context.Background()

	ok, err := cd.TryAcquire(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = cd.TryAcquire(ctx, "msg-1")
	assert.False(t, ok)
}

func TestMemoryCooldownCap(t *testing.T) {
	cd := NewMemoryCooldown(time.Minute)
	cd.max = 2
	ctx := context.Background()

	ok, _ := cd.TryAcquire(ctx, "a")
	require.True(t, ok)
	ok, _ = cd.TryAcquire(ctx, "b")
	require.True(t, ok)

	// set full, nothing expired: refuse rather than grow
	ok, _ = cd.TryAcquire(ctx, "c")
	assert.False(t, ok)
}
