// Package currency decides which donation currencies can be offered.
package currency

import (
	"context"
	"fmt"

	"github.com/Proton-105/donation-bot/internal/domain"
)

// Availability classifies a single currency.
type Availability int

const (
	Available Availability = iota
	Disabled
	NoActiveCard
	Unsupported
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Disabled:
		return "disabled"
	case NoActiveCard:
		return "no_active_card"
	default:
		return "unsupported"
	}
}

// EnabledSource yields the admin-enabled currencies.
type EnabledSource interface {
	EnabledCurrencies(ctx context.Context) ([]domain.Currency, error)
}

// CardSource yields currencies that currently have an active card.
type CardSource interface {
	CurrenciesWithActiveCards(ctx context.Context) ([]domain.Currency, error)
}

// Resolver intersects enabled currencies with card coverage.
type Resolver struct {
	enabled EnabledSource
	cards   CardSource
}

func NewResolver(enabled EnabledSource, cards CardSource) *Resolver {
	return &Resolver{enabled: enabled, cards: cards}
}

// Available returns currencies that are both enabled and backed by an active card,
// in canonical order.
func (r *Resolver) Available(ctx context.Context) ([]domain.Currency, error) {
	enabled, err := r.enabled.EnabledCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("enabled currencies: %w", err)
	}

	withCards, err := r.cards.CurrenciesWithActiveCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("currencies with cards: %w", err)
	}

	covered := make(map[domain.Currency]bool, len(withCards))
	for _, c := range withCards {
		covered[c] = true
	}

	out := make([]domain.Currency, 0, len(enabled))
	for _, c := range enabled {
		if covered[c] {
			out = append(out, c)
		}
	}
	return domain.SortCanonical(out), nil
}

// Check classifies one currency code.
func (r *Resolver) Check(ctx context.Context, c domain.Currency) (Availability, error) {
	if !c.Supported() {
		return Unsupported, nil
	}

	enabled, err := r.enabled.EnabledCurrencies(ctx)
	if err != nil {
		return Unsupported, fmt.Errorf("enabled currencies: %w", err)
	}
	if !contains(enabled, c) {
		return Disabled, nil
	}

	withCards, err := r.cards.CurrenciesWithActiveCards(ctx)
	if err != nil {
		return Unsupported, fmt.Errorf("currencies with cards: %w", err)
	}
	if !contains(withCards, c) {
		return NoActiveCard, nil
	}
	return Available, nil
}

func contains(list []domain.Currency, c domain.Currency) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
