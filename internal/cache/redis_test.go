package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, DefaultTTL), mr
}

func testItems(sessionID string) []domain.LineItem {
	return []domain.LineItem{
		{ID: "i1", SessionID: sessionID, ProductID: "p1", Name: "Wireless Headphones", Price: decimal.RequireFromString("99.99"), Quantity: 2},
		{ID: "i2", SessionID: sessionID, ProductID: "p2", Name: "USB-C Cable", Price: decimal.RequireFromString("14.99"), Quantity: 1},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	data, err := json.Marshal(testItems("s1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("s1"), string(data)))

	items, err := cache.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Equal(t, "99.99", items[0].Price.StringFixed(2))
	assert.Equal(t, 2, items[0].Quantity)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	items, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, items)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("s1"), `[{"id":`))

	_, err := cache.Get(context.Background(), "s1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "s2", testItems("s2")))

	stored, err := mr.Get(cacheKey("s2"))
	require.NoError(t, err)

	var items []domain.LineItem
	require.NoError(t, json.Unmarshal([]byte(stored), &items))
	assert.Len(t, items, 2)
	assert.Equal(t, "s2", items[1].SessionID)
}

func TestSet_EmptyCartIsCached(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "empty", nil))

	items, err := cache.Get(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "s3", testItems("s3")))

	ttl := mr.TTL(cacheKey("s3"))
	assert.GreaterOrEqual(t, ttl, DefaultTTL, "TTL should be at least base TTL")
	assert.LessOrEqual(t, ttl, DefaultTTL+5*time.Minute, "TTL should be base + max jitter")
}

func TestSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "s4", testItems("s4")))
	mr.FastForward(DefaultTTL + 5*time.Minute + time.Second)

	_, err := cache.Get(ctx, "s4")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("s5"), "[]"))
	assert.True(t, mr.Exists(cacheKey("s5")))

	require.NoError(t, cache.Delete(context.Background(), "s5"))
	assert.False(t, mr.Exists(cacheKey("s5")))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _ := setupTestRedis(t)
	assert.NoError(t, cache.Delete(context.Background(), "nonexistent"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cacheKey("test123"))
}

func TestNoopCache(t *testing.T) {
	var c CartCache = NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s1", testItems("s1")))
	_, err := c.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.Delete(ctx, "s1"))
}
