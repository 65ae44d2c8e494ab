package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every bot instance using the same Redis.
type Redis struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedis builds a Redis-backed Locker. The ttl bounds how long a crashed holder
// can keep the key.
func NewRedis(client *redis.Client, log *slog.Logger, ttl, wait time.Duration) *Redis {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if wait <= 0 {
		wait = DefaultWait
	}

	return &Redis{
		client: client,
		log:    log,
		ttl:    ttl,
		wait:   wait,
		retry:  defaultRetryInterval,
	}
}

// Lock polls SETNX until the key is acquired or the wait elapses.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	fullKey := redisKeyPrefix + key
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		acquired, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			r.log.Warn("lock wait timed out", slog.String("key", key))
			return nil, fmt.Errorf("%w: %s", ErrTimeout, key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			if err := releaseScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err(); err != nil {
				r.log.Error("failed to release lock", slog.String("key", key), slog.Any("error", err))
			}
		})
	}, nil
}
