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

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, "test:"), mr
}

func TestAllowRejectsAfterLimit(t *testing.T) {
	l, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
		assert.Equal(t, 3-i, res.Remaining)
	}
	res, err := l.Allow(ctx, "1.2.3.4", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.ResetIn, time.Duration(0))

	other, err := l.Allow(ctx, "5.6.7.8", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l, mr := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Allow(ctx, "ip", 1, time.Minute)
	require.NoError(t, err)
	res, err := l.Allow(ctx, "ip", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)
	res, err = l.Allow(ctx, "ip", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
