package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix  = "user:state:"
	defaultStateTTL = 24 * time.Hour
	scanBatch       = 100
)

// RedisStorage keeps each user state as a JSON string that expires after ttl of
// inactivity.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStorage initializes a Redis-backed Storage.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStorage{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("failed to load user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("load state for user %d: %w", userID, err)
	}

	st, err := decodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("decode state for user %d: %w", userID, err)
	}
	return st, nil
}

// SetState stamps UpdatedAt and refreshes the expiry.
func (s *RedisStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	state.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state for user %d: %w", userID, err)
	}

	if err := s.client.Set(ctx, stateKey(userID), raw, s.ttl).Err(); err != nil {
		s.log.Error("failed to save user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("save state for user %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear user state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("clear state for user %d: %w", userID, err)
	}
	return nil
}

// GetAllStates scans the state keys and loads each page with one MGET. Entries that
// expire mid-scan or fail to decode are skipped.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		cursor uint64
		states []*UserState
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, stateKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan user states: %w", err)
		}

		if len(keys) > 0 {
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("load user states: %w", err)
			}

			for i, value := range values {
				raw, ok := value.(string)
				if !ok {
					continue
				}
				st, err := decodeState([]byte(raw))
				if err != nil {
					s.log.Warn("skipping unreadable user state", slog.String("key", keys[i]), slog.Any("error", err))
					continue
				}
				states = append(states, st)
			}
		}

		if next == 0 {
			return states, nil
		}
		cursor = next
	}
}

func decodeState(raw []byte) (*UserState, error) {
	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func stateKey(userID int64) string {
	return stateKeyPrefix + strconv.FormatInt(userID, 10)
}
