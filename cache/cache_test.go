package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"kit-marketplace/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseItemCache(t *testing.T, c ItemCache) {
	t.Helper()

	_, err := c.Get("kit-1")
	assert.True(t, errors.Is(err, ErrCacheMiss), "expected miss, got %v", err)

	item := models.Item{ID: "kit-1", Title: "Zaku II HG 1/144", Price: 1800, Status: models.StatusOnSale}
	require.NoError(t, c.Set("kit-1", item))

	got, err := c.Get("kit-1")
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
	assert.Equal(t, item.Price, got.Price)

	require.NoError(t, c.Delete("kit-1"))
	require.NoError(t, c.Delete("kit-1"))
	_, err = c.Get("kit-1")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestBigCacheStore(t *testing.T) {
	c, err := NewBigCacheStore(time.Minute)
	require.NoError(t, err)
	defer c.Close()
	exerciseItemCache(t, c)
}

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	c := NewRedisStore(redis.NewClient(&redis.Options{Addr: s.Addr()}), "item-cache:", time.Minute)
	defer c.Close()
	exerciseItemCache(t, c)
}

func TestRedisStoreExpires(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	c := NewRedisStore(redis.NewClient(&redis.Options{Addr: s.Addr()}), "item-cache:", time.Minute)
	defer c.Close()

	require.NoError(t, c.Set("kit-2", models.Item{ID: "kit-2"}))
	assert.True(t, s.Exists("item-cache:kit-2"))

	s.FastForward(2 * time.Minute)
	_, err = c.Get("kit-2")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestDialUnreachable(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
