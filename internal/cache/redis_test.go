package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c := NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "availability:2025-03-11", []byte(`["10:00"]`), time.Minute))
	val, ok, err := c.Get(ctx, "availability:2025-03-11")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["10:00"]`, string(val))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "availability:2025-03-11")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "availability:2025-03-11", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "availability:2025-03-11:free", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "availability:2025-03-12", []byte("c"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "availability:2025-03-11"))
	assert.False(t, mr.Exists("availability:2025-03-11"))
	assert.False(t, mr.Exists("availability:2025-03-11:free"))
	assert.True(t, mr.Exists("availability:2025-03-12"))

	require.NoError(t, c.DeletePrefix(ctx, "nothing-here"))
}

func TestNewRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))

	_, err = NewRedisFromURL("://bad")
	assert.Error(t, err)
}
