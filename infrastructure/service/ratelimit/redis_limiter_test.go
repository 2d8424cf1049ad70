package ratelimit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRedisLimiter(t *testing.T, clock *testClock) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, defaultPolicy, quietLogger(), clock.Now), mr
}

func TestRedisLimiterCapacityAndRefill(t *testing.T) {
	clock := newTestClock()
	limiter, mr := newRedisLimiter(t, clock)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		d, err := limiter.Admit(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, 19-i, d.Remaining)
	}

	d, err := limiter.Admit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3*time.Second, d.RetryAfter)

	assert.True(t, mr.Exists("ratelimit:10.0.0.1"))
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:10.0.0.1"))

	clock.Advance(time.Minute)
	d, err = limiter.Admit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	clock := newTestClock()
	limiter, mr := newRedisLimiter(t, clock)
	mr.Close()

	d, err := limiter.Admit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestNoopLimiter(t *testing.T) {
	var l Limiter = noopLimiter{}
	for i := 0; i < 100; i++ {
		d, err := l.Admit(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	assert.Equal(t, 0, l.Len())
}
