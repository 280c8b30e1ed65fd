package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"kit-marketplace/cache"
	"kit-marketplace/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	itemCache, err := cache.NewBigCacheStore(time.Minute)
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewClient(rdb, itemCache), s
}

func TestGetItemReadsThroughCache(t *testing.T) {
	c, s := newTestClient(t)
	ctx := context.Background()

	item := models.Item{ID: "kit-1", Title: "Sazabi MG Ver.Ka", Price: 12000, Status: models.StatusOnSale, ViewCount: 3}
	require.NoError(t, c.PutItem(ctx, item))

	got, err := c.GetItem(ctx, "kit-1")
	require.NoError(t, err)
	assert.Equal(t, "Sazabi MG Ver.Ka", got.Title)

	// served from cache even though the document changed underneath
	s.Set(itemKeyPrefix+"kit-1", `{"id":"kit-1","title":"changed"}`)
	got, err = c.GetItem(ctx, "kit-1")
	require.NoError(t, err)
	assert.Equal(t, "Sazabi MG Ver.Ka", got.Title)

	require.NoError(t, c.Invalidate("kit-1"))
	got, err = c.GetItem(ctx, "kit-1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)
}

func TestGetItemNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetItem(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestGetItemUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()
	c := NewClient(rdb, nil)
	c.initialDelay = time.Millisecond

	_, err := c.GetItem(context.Background(), "kit-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrItemNotFound))
}

func TestIncrementViews(t *testing.T) {
	c, s := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.PutItem(ctx, models.Item{ID: "kit-1", ViewCount: 10}))
	_, err := c.GetItem(ctx, "kit-1")
	require.NoError(t, err)

	require.NoError(t, c.IncrementViews(ctx, map[string]int{"kit-1": 4, "kit-2": 1}))
	assert.Equal(t, "4", s.HGet(viewsKey, "kit-1"))
	assert.Equal(t, "1", s.HGet(viewsKey, "kit-2"))

	got, err := c.GetItem(ctx, "kit-1")
	require.NoError(t, err)
	assert.Equal(t, 14, got.ViewCount)
}

func TestRetryStopsOnUnrecoverableError(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("bad request")
	}, 3, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("i/o timeout")
	}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryWithBackoff(ctx, func() error { return errors.New("timeout") }, 5, time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
}
