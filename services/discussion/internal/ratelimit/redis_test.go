package ratelimit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *RedisCounter {
	t.Helper()
	if os.Getenv("DISCUSSION_INTEGRATION") != "1" {
		t.Skip("set DISCUSSION_INTEGRATION=1 to run redis integration tests")
	}
	ctx := context.Background()
	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(context.Background()) })

	host, err := rc.Host(ctx)
	require.NoError(t, err)
	port, err := rc.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c := NewRedisCounterFromURL(fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "test")
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))
	return c
}

func TestRedisCounter_Windows(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	base := time.Now()

	for _, at := range []time.Time{base.Add(-2 * time.Minute), base.Add(-30 * time.Second)} {
		_, hit, err := c.Reserve(ctx, ActionComment, "u1", at, nil)
		require.NoError(t, err)
		require.Equal(t, -1, hit)
	}

	bounds := []Bound{{Since: base.Add(-time.Minute), Max: 2}, {Since: base.Add(-time.Hour), Max: 3}}
	tok, hit, err := c.Reserve(ctx, ActionComment, "u1", base, bounds)
	require.NoError(t, err)
	require.Equal(t, -1, hit)
	require.NotEmpty(t, tok)

	// Minute holds 2 of 2.
	_, hit, err = c.Reserve(ctx, ActionComment, "u1", base, bounds)
	require.NoError(t, err)
	assert.Equal(t, 0, hit)

	// Hour is the binding bound once the minute has room.
	_, hit, err = c.Reserve(ctx, ActionComment, "u1", base, []Bound{{Since: base.Add(-time.Hour), Max: 3}})
	require.NoError(t, err)
	assert.Equal(t, 0, hit)

	require.NoError(t, c.Release(ctx, ActionComment, "u1", tok))
	_, hit, err = c.Reserve(ctx, ActionComment, "u1", base, bounds)
	require.NoError(t, err)
	assert.Equal(t, -1, hit, "released slot should be free")

	_, hit, err = c.Reserve(ctx, ActionComment, "u2", base, bounds)
	require.NoError(t, err)
	assert.Equal(t, -1, hit, "users do not share quota")
}

func TestRedisCounter_ConcurrentReserveHonoursCap(t *testing.T) {
	c := startRedis(t)
	l := New(c, DefaultPolicy(Caps{CommentsPerMinute: 1, CommentsPerDay: 100}))

	var (
		wg      sync.WaitGroup
		granted atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Reserve(context.Background(), ActionComment, user("racer")); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), granted.Load())
}
