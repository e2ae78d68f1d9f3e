// Package cache is a small JSON read-through layer over redis used by the
// public catalog. A miss and a redis failure look the same to callers, who
// fall back to the database, so the cache can be absent without breaking
// reads.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
	prefix string
}

func New(addr, prefix string) *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
	}
}

func (c *Cache) key(parts ...string) string {
	return c.prefix + ":" + strings.Join(parts, ":")
}

// GetJSON unmarshals the cached value into dest and reports whether the key
// was present. Redis errors come back alongside hit=false so the caller can
// log and keep going.
func (c *Cache) GetJSON(ctx context.Context, dest any, parts ...string) (bool, error) {
	raw, err := c.client.Get(ctx, c.key(parts...)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value as JSON under the composed key.
func (c *Cache) SetJSON(ctx context.Context, value any, ttl time.Duration, parts ...string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(parts...), raw, ttl).Err()
}

// Invalidate drops one key.
func (c *Cache) Invalidate(ctx context.Context, parts ...string) error {
	return c.client.Del(ctx, c.key(parts...)).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
