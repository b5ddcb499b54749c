package cache

import (
	"context"
	"testing"
	"time"

	"stockroom/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance and a client for it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop(), WithTTL(time.Minute), WithPrefix("test:"))
	ctx := context.Background()

	categories := []model.StockCategory{{Category: model.StockLow, Count: 3}}
	require.NoError(t, c.Set(ctx, "stock", categories))

	assert.True(t, mr.Exists("test:stock"))
	assert.Equal(t, time.Minute, mr.TTL("test:stock"))

	var got []model.StockCategory
	require.True(t, c.Get(ctx, "stock", &got))
	assert.Equal(t, categories, got)
}

func TestRedisCache_Miss(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop())

	var got []model.StockCategory
	assert.False(t, c.Get(context.Background(), "absent", &got))
	assert.Nil(t, got)
}

func TestRedisCache_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop(), WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ranking", []int{1}))
	mr.FastForward(2 * time.Second)

	var got []int
	assert.False(t, c.Get(ctx, "ranking", &got))
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop())

	require.NoError(t, mr.Set(DefaultPrefix+"stock", "{not json"))

	var got []model.StockCategory
	assert.False(t, c.Get(context.Background(), "stock", &got))
}

func TestRedisCache_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, c.Delete(ctx))

	assert.False(t, mr.Exists(DefaultPrefix+"a"))
	assert.False(t, mr.Exists(DefaultPrefix+"b"))
}

func TestRedisCache_Generation(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, zerolog.Nop())
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	next, err := c.NextGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	stored, err := mr.Get(DefaultPrefix + generationKey)
	require.NoError(t, err)
	assert.Equal(t, "1", stored)
}

func TestRedisCache_RedisDownDegrades(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	c := NewRedisCache(client, zerolog.Nop())
	ctx := context.Background()

	mr.Close()

	var got []int
	assert.False(t, c.Get(ctx, "stock", &got))
	assert.Error(t, c.Set(ctx, "stock", []int{1}))
	assert.Error(t, c.Delete(ctx, "stock"))

	_, err = c.Generation(ctx)
	assert.Error(t, err)
	_, err = c.NextGeneration(ctx)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	c := NewNop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1))
	var got int
	assert.False(t, c.Get(ctx, "k", &got))
	assert.NoError(t, c.Delete(ctx, "k"))

	_, err := c.NextGeneration(ctx)
	assert.NoError(t, err)
	gen, err := c.Generation(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}
