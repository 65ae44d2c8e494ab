// Package cards selects payment cards for donations.
package cards

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/lock"
	"github.com/Proton-105/donation-bot/internal/store"
)

const lockKeyPrefix = "card_rr:"

// PointerStore persists the per-currency rotation pointer.
type PointerStore interface {
	RotationPointer(ctx context.Context, c domain.Currency) (int, error)
	SetRotationPointer(ctx context.Context, c domain.Currency, n int) error
}

// Rotator hands out active cards of a currency in round-robin order.
type Rotator struct {
	cards    store.CardStore
	pointers PointerStore
	locker   lock.Locker
	log      *slog.Logger
}

// NewRotator wires a Rotator. The locker serializes pointer updates per currency.
func NewRotator(cards store.CardStore, pointers PointerStore, locker lock.Locker, log *slog.Logger) *Rotator {
	if log == nil {
		log = slog.Default()
	}
	return &Rotator{
		cards:    cards,
		pointers: pointers,
		locker:   locker,
		log:      log,
	}
}

// Next returns the next active card for the currency, or nil when none is active.
func (r *Rotator) Next(ctx context.Context, c domain.Currency) (*domain.Card, error) {
	unlock, err := r.locker.Lock(ctx, lockKeyPrefix+string(c))
	if err != nil {
		return nil, fmt.Errorf("lock card rotation: %w", err)
	}
	defer unlock()

	active, err := r.cards.ActiveCards(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("load active cards: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.Before(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})

	ptr, err := r.pointers.RotationPointer(ctx, c)
	if err != nil {
		return nil, err
	}

	n := len(active)
	idx := ptr % n
	if idx < 0 {
		idx += n
	}

	if err := r.pointers.SetRotationPointer(ctx, c, (idx+1)%n); err != nil {
		return nil, err
	}

	card := active[idx]
	r.log.Debug("card selected",
		slog.String("currency", string(c)),
		slog.Int64("card_id", card.ID),
		slog.Int("index", idx),
		slog.Int("active", n),
	)

	return &card, nil
}
