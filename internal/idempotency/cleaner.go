package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Cleaner deletes idempotency keys left without a usable expiry and purges the
// memory store.
type Cleaner struct {
	client   *redis.Client
	memory   *MemoryStore
	log      *slog.Logger
	interval time.Duration
	maxTTL   time.Duration
}

func NewCleaner(client *redis.Client, memory *MemoryStore, log *slog.Logger, interval, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{client: client, memory: memory, log: log, interval: interval, maxTTL: maxTTL}
}

// Run sweeps every interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Cleanup(ctx); n > 0 {
				c.log.Debug("idempotency keys swept", slog.Int("removed", n))
			}
		}
	}
}

// Cleanup runs one sweep and returns the number of removed entries.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	removed := 0
	if c.memory != nil {
		removed += c.memory.Purge()
	}
	if c.client == nil {
		return removed
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	page := make([]string, 0, scanCount)
	for iter.Next(ctx) {
		page = append(page, iter.Val())
		if len(page) == scanCount {
			removed += c.sweep(ctx, page)
			page = page[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("idempotency sweep scan failed", slog.Any("error", err))
	}
	if len(page) > 0 {
		removed += c.sweep(ctx, page)
	}
	return removed
}

// sweep reads the TTLs of keys in one round trip and deletes the stale ones.
func (c *Cleaner) sweep(ctx context.Context, keys []string) int {
	ttls := make([]*redis.DurationCmd, len(keys))
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			ttls[i] = pipe.TTL(ctx, key)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("idempotency ttl lookup failed", slog.Any("error", err))
		return 0
	}

	var stale []string
	for i, cmd := range ttls {
		// -1 is a key without expiry; -2 vanished after the scan
		if ttl := cmd.Val(); ttl == -1 || ttl > c.maxTTL {
			stale = append(stale, keys[i])
		}
	}
	if len(stale) == 0 {
		return 0
	}

	n, err := c.client.Del(ctx, stale...).Result()
	if err != nil {
		c.log.Warn("failed to delete stale idempotency keys", slog.Int("keys", len(stale)), slog.Any("error", err))
		return 0
	}
	return int(n)
}
