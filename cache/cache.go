package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kit-marketplace/models"

	"github.com/allegro/bigcache"
)

// ErrCacheMiss is returned by Get when the key is not cached.
var ErrCacheMiss = errors.New("cache: miss")

// ItemCache defines the interface for caching catalog items by id.
type ItemCache interface {
	Set(key string, value models.Item) error
	Get(key string) (models.Item, error)
	Delete(key string) error
	Close() error
}

// BigCacheStore is an in-process ItemCache backed by BigCache.
type BigCacheStore struct {
	cache *bigcache.BigCache
}

// NewBigCacheStore initializes a new BigCacheStore whose entries live for
// lifeWindow.
func NewBigCacheStore(lifeWindow time.Duration) (*BigCacheStore, error) {
	config := bigcache.Config{
		Shards:           256,
		LifeWindow:       lifeWindow,
		CleanWindow:      lifeWindow / 2,
		MaxEntrySize:     2048,
		HardMaxCacheSize: 64,
		Verbose:          false,
	}
	bc, err := bigcache.NewBigCache(config)
	if err != nil {
		return nil, err
	}
	return &BigCacheStore{cache: bc}, nil
}

// Set stores a value in the cache.
func (b *BigCacheStore) Set(key string, value models.Item) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.cache.Set(key, data)
}

// Get retrieves a value from the cache.
func (b *BigCacheStore) Get(key string) (models.Item, error) {
	data, err := b.cache.Get(key)
	if err != nil {
		// BigCache only fails a Get for a missing or expired key.
		return models.Item{}, fmt.Errorf("%w: %v", ErrCacheMiss, err)
	}
	var value models.Item
	if err := json.Unmarshal(data, &value); err != nil {
		return models.Item{}, err
	}
	return value, nil
}

// Delete removes a value from the cache. Deleting a missing key is not an error.
func (b *BigCacheStore) Delete(key string) error {
	if _, err := b.cache.Get(key); err != nil {
		return nil
	}
	return b.cache.Delete(key)
}

// Close is a no-op; BigCache holds no external resources.
func (b *BigCacheStore) Close() error {
	return nil
}
