package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glebknyazev/vpn-miniapp/internal/config"
)

type testStruct struct {
	Name string
	GB   int
}

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	value := testStruct{Name: "whitelist", GB: 42}
	require.NoError(t, cache.Set(ctx, "pending:123", value, time.Hour))

	var got testStruct
	found, err := cache.Get(ctx, "pending:123", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, got)
}

func TestGet_Missing(t *testing.T) {
	cache := setupTestCache(t)

	var got testStruct
	found, err := cache.Get(context.Background(), "pending:missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", testStruct{Name: "x"}, time.Hour))
	require.NoError(t, cache.Invalidate(ctx, "k"))

	var got testStruct
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
