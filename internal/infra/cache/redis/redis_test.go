package redisx

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
)

func newTestCache(t *testing.T, ttl ...time.Duration) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	cfg := Config{Addr: addr, TTL: 5 * time.Second, Wait: 300 * time.Millisecond}
	if len(ttl) > 0 {
		cfg.TTL = ttl[0]
	}
	c := New(cfg, log.New(io.Discard, "", 0))
	t.Cleanup(c.Close)
	require.NoError(t, c.Ping(context.Background()))
	return c
}

func TestLockExclusive(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := uuid.NewString()

	release, err := c.Lock(ctx, key)
	require.NoError(t, err)

	_, err = c.Lock(ctx, key)
	require.ErrorIs(t, err, domain.ErrBusy)

	release()
	again, err := c.Lock(ctx, key)
	require.NoError(t, err)
	again()
}

func TestUnlockKeepsForeignToken(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := "gallery:lock:" + uuid.NewString()

	ok, err := c.SetNX(ctx, key, "someone-else", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	c.unlock(key, "mine")
	n, err := c.rdb.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLockOutlivesTTLWhileHeld(t *testing.T) {
	c := newTestCache(t, 300*time.Millisecond)
	ctx := context.Background()
	key := uuid.NewString()

	release, err := c.Lock(ctx, key)
	require.NoError(t, err)

	time.Sleep(time.Second)
	_, err = c.Lock(ctx, key)
	require.ErrorIs(t, err, domain.ErrBusy)

	release()
	release()
	n, err := c.rdb.Exists(ctx, "gallery:lock:"+key).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
