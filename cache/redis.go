package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"kit-marketplace/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore is an ItemCache shared between processes through Redis.
type RedisStore struct {
	Client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. Keys are stored as prefix+key and
// expire after ttl (0 keeps them until deleted).
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, prefix: prefix, ttl: ttl}
}

// Dial creates a Redis client and pings it to ensure connectivity.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// Set stores a value in Redis.
func (r *RedisStore) Set(key string, value models.Item) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(context.Background(), r.prefix+key, data, r.ttl).Err()
}

// Get retrieves a value from Redis.
func (r *RedisStore) Get(key string) (models.Item, error) {
	var result models.Item
	data, err := r.Client.Get(context.Background(), r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, ErrCacheMiss
	}
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(data, &result)
	return result, err
}

// Delete removes a value from Redis.
func (r *RedisStore) Delete(key string) error {
	return r.Client.Del(context.Background(), r.prefix+key).Err()
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.Client.Close()
}
