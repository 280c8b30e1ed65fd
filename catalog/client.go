// Package catalog reads catalog items from the backend document store. The
// store is reached through Redis, where each item is a JSON document.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kit-marketplace/cache"
	"kit-marketplace/logger"
	"kit-marketplace/models"

	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix = "catalog:item:"
	viewsKey      = "catalog:views"
)

// ErrItemNotFound is returned when no document exists for an item id.
var ErrItemNotFound = errors.New("catalog: item not found")

// Catalog is what the item-detail surface needs from the backend.
type Catalog interface {
	GetItem(ctx context.Context, id string) (models.Item, error)
}

// Client is a read-through Catalog: the item cache is consulted first, then
// the document store.
type Client struct {
	rdb          *redis.Client
	cache        cache.ItemCache
	maxRetries   int
	initialDelay time.Duration
}

// NewClient builds a Client. itemCache may be nil to disable caching.
func NewClient(rdb *redis.Client, itemCache cache.ItemCache) *Client {
	return &Client{
		rdb:          rdb,
		cache:        itemCache,
		maxRetries:   3,
		initialDelay: 100 * time.Millisecond,
	}
}

// GetItem returns the item with the given id, including view counts that
// have been flushed since the document was written.
func (c *Client) GetItem(ctx context.Context, id string) (models.Item, error) {
	if c.cache != nil {
		if item, err := c.cache.Get(id); err == nil {
			return item, nil
		}
	}

	var data []byte
	fetchOp := func() error {
		b, err := c.rdb.Get(ctx, itemKeyPrefix+id).Bytes()
		if err != nil {
			return err
		}
		data = b
		return nil
	}
	if err := retryWithBackoff(ctx, fetchOp, c.maxRetries, c.initialDelay); err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Item{}, ErrItemNotFound
		}
		return models.Item{}, fmt.Errorf("fetch item %s: %w", id, err)
	}

	var item models.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return models.Item{}, fmt.Errorf("decode item %s: %w", id, err)
	}
	if item.ID == "" {
		item.ID = id
	}

	views, err := c.rdb.HGet(ctx, viewsKey, id).Int()
	if err == nil {
		item.ViewCount += views
	} else if !errors.Is(err, redis.Nil) {
		logger.Debug.Printf("view count for %s unavailable: %v", id, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(id, item); err != nil {
			logger.Debug.Printf("cache set for %s failed: %v", id, err)
		}
	}
	return item, nil
}

// PutItem writes an item document and drops any cached copy.
func (c *Client) PutItem(ctx context.Context, item models.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, itemKeyPrefix+item.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("put item %s: %w", item.ID, err)
	}
	return c.Invalidate(item.ID)
}

// IncrementViews adds aggregated view counts in a single round trip.
func (c *Client) IncrementViews(ctx context.Context, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, n := range counts {
			pipe.HIncrBy(ctx, viewsKey, id, int64(n))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	for id := range counts {
		if err := c.Invalidate(id); err != nil {
			logger.Debug.Printf("cache invalidate for %s failed: %v", id, err)
		}
	}
	return nil
}

// Invalidate drops the cached copy of an item.
func (c *Client) Invalidate(id string) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(id)
}
