package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryThrottleBlocksAfterMax(t *testing.T) {
	ctx := context.Background()
	throttle := NewMemoryThrottle(3, time.Minute)

	for i := 0; i < 3; i++ {
		blocked, err := throttle.Blocked(ctx, "ann@example.com")
		require.NoError(t, err)
		assert.False(t, blocked)
		require.NoError(t, throttle.RecordFailure(ctx, "ann@example.com"))
	}

	blocked, err := throttle.Blocked(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = throttle.Blocked(ctx, " ann@example.com ")
	require.NoError(t, err)
	assert.True(t, blocked, "surrounding whitespace is ignored")

	blocked, err = throttle.Blocked(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.False(t, blocked, "emails differing in case are separate identities")

	blocked, err = throttle.Blocked(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, throttle.Reset(ctx, "ann@example.com"))
	blocked, err = throttle.Blocked(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestMemoryThrottleWindowExpires(t *testing.T) {
	ctx := context.Background()
	throttle := NewMemoryThrottle(1, 20*time.Millisecond)

	require.NoError(t, throttle.RecordFailure(ctx, "ann@example.com"))
	blocked, err := throttle.Blocked(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	assert.Eventually(t, func() bool {
		blocked, _ := throttle.Blocked(ctx, "ann@example.com")
		return !blocked
	}, time.Second, 10*time.Millisecond)
}

func TestNewSelectsImplementation(t *testing.T) {
	assert.Nil(t, New(config.AuthConfig{MaxFailedSignIns: 0}, nil))
	assert.IsType(t, &MemoryThrottle{}, New(config.AuthConfig{MaxFailedSignIns: 5, FailedSignInWindow: time.Minute}, nil))
}

func TestNewRedisClientWithoutAddress(t *testing.T) {
	client, err := NewRedisClient(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisThrottle(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	email := uuid.NewString() + "@example.com"
	throttle := NewRedisThrottle(client, 2, time.Minute)
	t.Cleanup(func() { _ = throttle.Reset(ctx, email) })

	for i := 0; i < 2; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, email))
		ttl, err := client.TTL(ctx, normalizeKey(email)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0), "failure %d left the counter without a TTL", i+1)
	}
	blocked, err := throttle.Blocked(ctx, email)
	require.NoError(t, err)
	assert.True(t, blocked)

	require.NoError(t, throttle.Reset(ctx, email))
	blocked, err = throttle.Blocked(ctx, email)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestRedisThrottleRestoresMissingTTL(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	email := uuid.NewString() + "@example.com"
	throttle := NewRedisThrottle(client, 2, time.Minute)
	t.Cleanup(func() { _ = throttle.Reset(ctx, email) })

	// A counter stranded without an expiry, as an interrupted write would leave it.
	key := normalizeKey(email)
	require.NoError(t, client.IncrBy(ctx, key, 5).Err())
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	require.Equal(t, time.Duration(-1), ttl)

	require.NoError(t, throttle.RecordFailure(ctx, email))
	ttl, err = client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestNormalizeKeyKeepsCase(t *testing.T) {
	assert.Equal(t, keyPrefix+"Ann@example.com", normalizeKey("  Ann@example.com\t"))
	assert.NotEqual(t, normalizeKey("Ann@example.com"), normalizeKey("ann@example.com"))
}
