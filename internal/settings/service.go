// Package settings exposes typed accessors over the key-value settings store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)

const (
	KeyEnabledCurrencies = "donation_enabled_currencies"
	KeySupportMessage    = "support_message"
	keyPointerPrefix     = "card_rr_pointer_"
)

// ErrUnsupportedCurrency is returned when toggling a currency outside the supported set.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Service reads and writes application settings.
type Service struct {
	store store.SettingsStore
	log   *slog.Logger
}

// NewService constructs a settings Service.
func NewService(st store.SettingsStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, log: log}
}

// EnabledCurrencies returns the admin-enabled donation currencies in canonical order.
// A missing setting means every supported currency is enabled.
func (s *Service) EnabledCurrencies(ctx context.Context) ([]domain.Currency, error) {
	raw, found, err := s.store.GetSetting(ctx, KeyEnabledCurrencies)
	if err != nil {
		return nil, fmt.Errorf("get enabled currencies: %w", err)
	}
	if !found {
		out := make([]domain.Currency, len(domain.SupportedCurrencies))
		copy(out, domain.SupportedCurrencies)
		return out, nil
	}

	parsed := make([]domain.Currency, 0, len(domain.SupportedCurrencies))
	for _, part := range strings.Split(raw, ",") {
		if c, ok := domain.ParseCurrency(part); ok {
			parsed = append(parsed, c)
		}
	}
	return domain.SortCanonical(parsed), nil
}

// IsCurrencyEnabled reports whether the currency is admin-enabled.
func (s *Service) IsCurrencyEnabled(ctx context.Context, c domain.Currency) (bool, error) {
	enabled, err := s.EnabledCurrencies(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range enabled {
		if e == c {
			return true, nil
		}
	}
	return false, nil
}

// SetCurrencyEnabled adds or removes a currency and returns the resulting set.
func (s *Service) SetCurrencyEnabled(ctx context.Context, c domain.Currency, enabled bool) ([]domain.Currency, error) {
	if !c.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
	}

	current, err := s.EnabledCurrencies(ctx)
	if err != nil {
		return nil, err
	}

	next := make([]domain.Currency, 0, len(current)+1)
	for _, e := range current {
		if e != c {
			next = append(next, e)
		}
	}
	if enabled {
		next = append(next, c)
	}
	next = domain.SortCanonical(next)

	codes := make([]string, len(next))
	for i, e := range next {
		codes[i] = string(e)
	}

	if err := s.store.SetSetting(ctx, KeyEnabledCurrencies, strings.Join(codes, ",")); err != nil {
		return nil, fmt.Errorf("save enabled currencies: %w", err)
	}

	s.log.Info("donation currency toggled", slog.String("currency", string(c)), slog.Bool("enabled", enabled))
	return next, nil
}

// ToggleCurrency flips the enabled flag of a currency.
func (s *Service) ToggleCurrency(ctx context.Context, c domain.Currency) ([]domain.Currency, error) {
	enabled, err := s.IsCurrencyEnabled(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.SetCurrencyEnabled(ctx, c, !enabled)
}

// SupportMessage returns the admin-defined support text, empty when unset.
func (s *Service) SupportMessage(ctx context.Context) (string, error) {
	msg, _, err := s.store.GetSetting(ctx, KeySupportMessage)
	if err != nil {
		return "", fmt.Errorf("get support message: %w", err)
	}
	return msg, nil
}

// SetSupportMessage replaces the support text.
func (s *Service) SetSupportMessage(ctx context.Context, msg string) error {
	if err := s.store.SetSetting(ctx, KeySupportMessage, msg); err != nil {
		return fmt.Errorf("set support message: %w", err)
	}
	return nil
}

// RotationPointer returns the stored card pointer for a currency; absent or corrupt values read as 0.
func (s *Service) RotationPointer(ctx context.Context, c domain.Currency) (int, error) {
	raw, found, err := s.store.GetSetting(ctx, pointerKey(c))
	if err != nil {
		return 0, fmt.Errorf("get rotation pointer: %w", err)
	}
	if !found {
		return 0, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		s.log.Warn("invalid rotation pointer, resetting", slog.String("currency", string(c)), slog.String("value", raw))
		return 0, nil
	}
	return n, nil
}

// SetRotationPointer persists the card pointer for a currency.
func (s *Service) SetRotationPointer(ctx context.Context, c domain.Currency, n int) error {
	if err := s.store.SetSetting(ctx, pointerKey(c), strconv.Itoa(n)); err != nil {
		return fmt.Errorf("set rotation pointer: %w", err)
	}
	return nil
}

func pointerKey(c domain.Currency) string {
	return keyPointerPrefix + string(c)
}
