// Package usercache caches user language codes in front of the store.
package usercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Yiling-J/theine-go"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 6 * time.Hour
	// localCapacity bounds the in-process tier by entry count.
	localCapacity = 10_000
)

// Cache keeps language codes in Redis, or in a bounded in-process cache when no
// client is given. It is never authoritative.
type Cache struct {
	client *redis.Client
	local  *theine.Cache[int64, string]
	ttl    time.Duration
}

// NewCache constructs a language cache. A nil client selects the in-process tier.
func NewCache(client *redis.Client, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c := &Cache{client: client, ttl: ttl}
	if client != nil {
		return c, nil
	}

	local, err := theine.NewBuilder[int64, string](localCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("build local language cache: %w", err)
	}
	c.local = local
	return c, nil
}

// Get returns the cached language and whether it was present.
func (c *Cache) Get(ctx context.Context, userID int64) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	if c.local != nil {
		lang, ok := c.local.Get(userID)
		return lang, ok, nil
	}

	lang, err := c.client.Get(ctx, cacheKey(userID)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get cached language: %w", err)
	}
	return lang, true, nil
}

// Set stores the language for the cache TTL.
func (c *Cache) Set(ctx context.Context, userID int64, lang string) error {
	if c == nil {
		return nil
	}
	if c.local != nil {
		c.local.SetWithTTL(userID, lang, 1, c.ttl)
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(userID), lang, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached language: %w", err)
	}
	return nil
}

// Invalidate removes the cached entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil {
		return nil
	}
	if c.local != nil {
		c.local.Delete(userID)
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached language: %w", err)
	}
	return nil
}

// Close releases the in-process tier.
func (c *Cache) Close() {
	if c != nil && c.local != nil {
		c.local.Close()
	}
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("user:lang:%d", userID)
}
