// Package admin implements the admin panel: statistics, card management, currency
// switches and the support message.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/store"
)

// ErrNotAdmin is returned when a non-admin calls an admin operation.
var ErrNotAdmin = errors.New("admin only")

const (
	maxCardDetails    = 512
	maxSupportMessage = 2000
)

// SessionStore persists typed conversation steps.
type SessionStore interface {
	Load(ctx context.Context, userID int64) (state.Step, error)
	Save(ctx context.Context, userID int64, step state.Step) error
	Reset(ctx context.Context, userID int64) error
}

// Settings is the part of the settings service the admin panel edits.
type Settings interface {
	EnabledCurrencies(ctx context.Context) ([]domain.Currency, error)
	ToggleCurrency(ctx context.Context, c domain.Currency) ([]domain.Currency, error)
	SupportMessage(ctx context.Context) (string, error)
	SetSupportMessage(ctx context.Context, msg string) error
}

type Stores interface {
	store.CardStore
	GetStats(ctx context.Context) (*domain.Stats, error)
}

type cardInput struct {
	Details  string          `validate:"required,max=512"`
	Currency domain.Currency `validate:"required,oneof=UAH RUB USD"`
}

// Service is the admin panel backend. Every operation checks the caller.
type Service struct {
	adminID  int64
	stores   Stores
	settings Settings
	sessions SessionStore
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(adminID int64, stores Stores, settings Settings, sessions SessionStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		adminID:  adminID,
		stores:   stores,
		settings: settings,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// IsAdmin reports whether userID is the configured admin. A zero admin id disables the panel.
func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *Service) guard(userID int64) error {
	if !s.IsAdmin(userID) {
		return ErrNotAdmin
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, userID int64) (*domain.Stats, error) {
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	stats, err := s.stores.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

func (s *Service) Cards(ctx context.Context, userID int64) ([]domain.Card, error) {
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	cards, err := s.stores.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return cards, nil
}

// ToggleCard flips a card between active and inactive and returns the updated card.
func (s *Service) ToggleCard(ctx context.Context, userID, cardID int64) (*domain.Card, error) {
	if err := s.guard(userID); err != nil {
		return nil, err
	}

	card, err := s.stores.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	card.Active = !card.Active
	if err := s.stores.SetCardActive(ctx, cardID, card.Active); err != nil {
		return nil, fmt.Errorf("set card %d active: %w", cardID, err)
	}

	s.log.Info("card toggled", slog.Int64("card_id", cardID), slog.Bool("active", card.Active))
	return card, nil
}

func (s *Service) DeleteCard(ctx context.Context, userID, cardID int64) error {
	if err := s.guard(userID); err != nil {
		return err
	}
	if err := s.stores.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.log.Info("card deleted", slog.Int64("card_id", cardID))
	return nil
}

func (s *Service) EnabledCurrencies(ctx context.Context, userID int64) ([]domain.Currency, error) {
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	return s.settings.EnabledCurrencies(ctx)
}

// ToggleCurrency switches a donation currency on or off and returns the enabled set.
func (s *Service) ToggleCurrency(ctx context.Context, userID int64, code string) ([]domain.Currency, error) {
	if err := s.guard(userID); err != nil {
		return nil, err
	}
	c, ok := domain.ParseCurrency(code)
	if !ok {
		return nil, fmt.Errorf("toggle currency %q: unsupported", code)
	}
	return s.settings.ToggleCurrency(ctx, c)
}

// SupportMessage is public: every user can open Support.
func (s *Service) SupportMessage(ctx context.Context) (string, error) {
	return s.settings.SupportMessage(ctx)
}

func normalize(text string) string {
	return strings.TrimSpace(text)
}
