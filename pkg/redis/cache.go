package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is not present in the cache
var ErrCacheMiss = errors.New("cache miss")

// Cache is a TTL cache for JSON-serializable values. Callers construct it with a
// TTL and invalidate explicitly; it is injected rather than accessed globally.
type Cache struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

// NewCache creates a new Cache
func NewCache(client *Client, keyPrefix string, ttl time.Duration) *Cache {
	if keyPrefix == "" {
		keyPrefix = "cache:"
	}
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// GetJSON reads a cached value into dest. Returns ErrCacheMiss when absent or expired.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	raw, err := c.client.rdb.Get(ctx, c.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// SetJSON stores a value under the cache TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.rdb.Set(ctx, c.keyPrefix+key, raw, c.ttl).Err()
}

// Invalidate removes a key from the cache
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.client.rdb.Del(ctx, c.keyPrefix+key).Err()
}
