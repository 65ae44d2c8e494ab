// Package idempotency suppresses repeated processing of the same Telegram update.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const defaultClaimTTL = 2 * time.Minute

// Outcome reports what Once did with a key.
type Outcome int

const (
	// Processed means fn ran and succeeded.
	Processed Outcome = iota
	// Duplicate means the key completed earlier and fn was skipped.
	Duplicate
	// InFlight means another worker holds the claim on the key.
	InFlight
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Duplicate:
		return "duplicate"
	case InFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Guard runs work at most once per key while the completion record lives.
type Guard struct {
	store    Store
	log      *slog.Logger
	claimTTL time.Duration
	now      func() time.Time
}

func NewGuard(store Store, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		store:    store,
		log:      log,
		claimTTL: defaultClaimTTL,
		now:      time.Now,
	}
}

// Once claims key, runs fn and records the completion for ttl. When fn fails the claim
// is released and nothing is recorded, so a redelivery runs fn again.
func (g *Guard) Once(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) (Outcome, error) {
	if fn == nil {
		return Processed, errors.New("idempotency: nil fn")
	}

	if done, err := g.completed(ctx, key); err != nil || done {
		return Duplicate, err
	}

	claimed, err := g.store.Lock(ctx, key, g.claimTTL)
	if err != nil {
		return InFlight, err
	}
	if !claimed {
		// the holder may have finished between the two reads
		if done, err := g.completed(ctx, key); err != nil || done {
			return Duplicate, err
		}
		return InFlight, nil
	}
	defer g.release(ctx, key)

	if err := fn(ctx); err != nil {
		return Processed, err
	}

	record := &Record{Status: StatusCompleted, CompletedAt: g.now().UTC()}
	if err := g.store.Set(ctx, key, record, ttl); err != nil {
		g.log.Warn("completion not recorded", slog.String("key", key), slog.Any("error", err))
	}
	return Processed, nil
}

func (g *Guard) completed(ctx context.Context, key string) (bool, error) {
	record, err := g.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return record != nil && record.Status == StatusCompleted, nil
}

func (g *Guard) release(ctx context.Context, key string) {
	if err := g.store.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
		g.log.Warn("claim not released", slog.String("key", key), slog.Any("error", err))
	}
}
