//go:build integration

package locker

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newRedisClient(t)
	l := NewRedisLocker(client, "test:lock:", time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "pass-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(waitCtx, "pass-1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	exists, err := client.Exists(ctx, "test:lock:pass-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	release2, err := l.Acquire(ctx, "pass-1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	client := newRedisClient(t)
	l := NewRedisLocker(client, "test:lock:", 50*time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "pass-2")
	require.NoError(t, err)

	// Let the lease lapse and another holder take the key.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, client.Set(ctx, "test:lock:pass-2", "someone-else", time.Minute).Err())

	release()
	val, err := client.Get(ctx, "test:lock:pass-2").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
}
