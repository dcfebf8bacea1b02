package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("VHDLCHECK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("VHDLCHECK_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestRedisFixedWindow(t *testing.T) {
	addr := redisAddr(t)
	ctx := context.Background()

	prefix := "vhdlcheck-test:" + uuid.NewString() + ":"
	limiter, err := NewRedis(ctx, Config{Window: time.Minute, MaxRequests: 3}, RedisConfig{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.Close() })

	for n := 1; n <= 3; n++ {
		d := limiter.Check(ctx, "client", "/api/analyze")
		require.True(t, d.Allowed)
		assert.Equal(t, 3-n, d.Remaining)
	}
	d := limiter.Check(ctx, "client", "/api/analyze")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.True(t, d.ResetAt.After(time.Now()))
}

func TestRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisWithClient(Config{Window: time.Minute, MaxRequests: 2}, client, "")
	d := limiter.Check(context.Background(), "client", "/api/analyze")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Limit)
	assert.Error(t, limiter.Ping(context.Background()))
	assert.NoError(t, limiter.Close())
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := NewRedis(ctx, Config{}, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
