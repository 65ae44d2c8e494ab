package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner periodically drops stale sliding-window entries from both limiter backends.
type Cleaner struct {
	redisClient *redis.Client
	memory      *MemoryLimiter
	log         *slog.Logger
	interval    time.Duration
	maxAge      time.Duration
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(client *redis.Client, memory *MemoryLimiter, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		redisClient: client,
		memory:      memory,
		log:         log,
		interval:    interval,
		maxAge:      maxAge,
	}
}

// Run starts the cleaner loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one pass and returns the number of removed keys.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	removed := 0
	if c.memory != nil {
		removed += c.memory.Cleanup(c.maxAge)
	}
	if c.redisClient != nil {
		removed += c.cleanupRedis(ctx)
	}

	if removed > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", removed))
	}
	return removed
}

const scanCount = 100

func (c *Cleaner) cleanupRedis(ctx context.Context) int {
	// scores are unix milliseconds, see slidingWindow
	cutoff := "(" + strconv.FormatInt(time.Now().Add(-c.maxAge).UnixMilli(), 10)

	iter := c.redisClient.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	page := make([]string, 0, scanCount)
	cleaned := 0
	for iter.Next(ctx) {
		page = append(page, iter.Val())
		if len(page) == scanCount {
			cleaned += c.trim(ctx, page, cutoff)
			page = page[:0]
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("rate limit scan failed", slog.Any("error", err))
	}
	if len(page) > 0 {
		cleaned += c.trim(ctx, page, cutoff)
	}
	return cleaned
}

// trim drops entries older than cutoff from keys and deletes the windows left empty.
func (c *Cleaner) trim(ctx context.Context, keys []string, cutoff string) int {
	sizes := make([]*redis.IntCmd, len(keys))
	_, err := c.redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			sizes[i] = pipe.ZCard(ctx, key)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("rate limit trim failed", slog.Int("keys", len(keys)), slog.Any("error", err))
		return 0
	}

	empty := make([]string, 0, len(keys))
	for i, size := range sizes {
		if size.Val() == 0 {
			empty = append(empty, keys[i])
		}
	}
	if len(empty) == 0 {
		return 0
	}

	deleted, err := c.redisClient.Del(ctx, empty...).Result()
	if err != nil {
		c.log.Warn("failed to delete empty rate limit keys", slog.Int("keys", len(empty)), slog.Any("error", err))
		return 0
	}
	return int(deleted)
}
