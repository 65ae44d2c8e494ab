package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)

// ErrUnsupportedLanguage is returned when a language outside the loaded catalogs is chosen.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// LanguageCache is a non-authoritative language lookup cache.
type LanguageCache interface {
	Get(ctx context.Context, userID int64) (string, bool, error)
	Set(ctx context.Context, userID int64, lang string) error
	Invalidate(ctx context.Context, userID int64) error
}

// Service provides business operations over users.
type Service struct {
	repo      store.UserStore
	cache     LanguageCache
	languages map[string]bool
	log       *slog.Logger
}

// NewService constructs a new Service instance. languages lists the selectable codes.
func NewService(repo store.UserStore, cache LanguageCache, languages []string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	allowed := make(map[string]bool, len(languages))
	for _, l := range languages {
		allowed[l] = true
	}

	return &Service{repo: repo, cache: cache, languages: allowed, log: log}
}

// EnsureUser registers the Telegram user on first contact and refreshes name fields
// afterwards. It reports whether the user is new.
func (s *Service) EnsureUser(ctx context.Context, telegramUser *telebot.User) (*domain.User, bool, error) {
	if telegramUser == nil {
		return nil, false, errors.New("telegram user is nil")
	}

	u := &domain.User{
		TelegramID: telegramUser.ID,
		FirstName:  telegramUser.FirstName,
		Username:   telegramUser.Username,
	}

	created, err := s.repo.AddUser(ctx, u)
	if err != nil {
		s.logError("ensure_user", telegramUser.ID, err)
		return nil, false, fmt.Errorf("add user: %w", err)
	}

	if created {
		s.log.Info("new user registered", slog.Int64("telegram_id", u.TelegramID))
	}

	return u, created, nil
}

// Get returns a stored user.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logError("get", userID, err)
		}
		return nil, err
	}
	return u, nil
}

// Language returns the user's language code, empty when never chosen.
func (s *Service) Language(ctx context.Context, userID int64) (string, error) {
	if lang, ok, err := s.cache.Get(ctx, userID); err != nil {
		s.log.Warn("language cache read failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
	} else if ok {
		return lang, nil
	}

	lang, err := s.repo.GetUserLanguage(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		s.logError("language", userID, err)
		return "", err
	}

	if lang != "" {
		if err := s.cache.Set(ctx, userID, lang); err != nil {
			s.log.Warn("language cache write failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
		}
	}

	return lang, nil
}

// SetLanguage persists the language and invalidates the cached value.
func (s *Service) SetLanguage(ctx context.Context, userID int64, lang string) error {
	if !s.languages[lang] {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	if err := s.repo.SetUserLanguage(ctx, userID, lang); err != nil {
		s.logError("set_language", userID, err)
		return err
	}

	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("language cache invalidation failed", slog.Int64("telegram_id", userID), slog.Any("error", err))
	}

	return nil
}

// PreferredReferrer returns the stored referrer, zero when none.
func (s *Service) PreferredReferrer(ctx context.Context, userID int64) (int64, error) {
	ref, err := s.repo.GetPreferredReferrer(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		s.logError("preferred_referrer", userID, err)
		return 0, err
	}
	return ref, nil
}

// SetPreferredReferrer remembers the referrer. Self and empty values are ignored.
func (s *Service) SetPreferredReferrer(ctx context.Context, userID, referrerID int64) error {
	if referrerID <= 0 || referrerID == userID {
		return nil
	}

	if err := s.repo.SetPreferredReferrer(ctx, userID, referrerID); err != nil {
		s.logError("set_preferred_referrer", userID, err)
		return err
	}
	return nil
}

// TotalDonated sums the user's approved donations.
func (s *Service) TotalDonated(ctx context.Context, userID int64) (decimal.Decimal, error) {
	total, err := s.repo.UserTotalDonated(ctx, userID)
	if err != nil {
		s.logError("total_donated", userID, err)
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Service) logError(operation string, telegramID int64, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("user service operation failed",
		slog.String("operation", operation),
		slog.Int64("telegram_id", telegramID),
		slog.Any("error", err),
	)
}
