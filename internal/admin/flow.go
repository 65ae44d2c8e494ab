package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/state"
)

// Kind names the result of an admin draft step.
type Kind int

const (
	KindAskCardDetails Kind = iota + 1
	KindInvalidCardDetails
	KindAskCardCurrency
	KindConfirmCard
	KindCardAdded
	KindCardCancelled
	KindAskSupportText
	KindInvalidSupportText
	KindConfirmSupport
	KindSupportSaved
	KindSupportCancelled
	KindSessionExpired
)

// Outcome is the result of a draft step. Fields are set only when the kind uses them.
type Outcome struct {
	Kind     Kind
	Details  string
	Currency domain.Currency
	Card     *domain.Card
	Text     string
}

// BeginAddCard starts the add-card draft. Details given inline skip the first prompt.
func (s *Service) BeginAddCard(ctx context.Context, userID int64, details string) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	if err := s.sessions.Save(ctx, userID, state.AdminCardDetails{}); err != nil {
		return Outcome{}, err
	}
	if normalize(details) == "" {
		return Outcome{Kind: KindAskCardDetails}, nil
	}
	return s.SubmitCardDetails(ctx, userID, details)
}

// SubmitCardDetails stores the card text in the draft and asks for its currency.
func (s *Service) SubmitCardDetails(ctx context.Context, userID int64, details string) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}
	if _, ok := step.(state.AdminCardDetails); !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	details = normalize(details)
	if err := s.validate.Var(details, fmt.Sprintf("required,max=%d", maxCardDetails)); err != nil {
		return Outcome{Kind: KindInvalidCardDetails}, nil
	}

	if err := s.sessions.Save(ctx, userID, state.AdminCardCurrency{Details: details}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindAskCardCurrency, Details: details}, nil
}

// ChooseCardCurrency completes the draft and asks for confirmation.
func (s *Service) ChooseCardCurrency(ctx context.Context, userID int64, code string) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}
	draft, ok := step.(state.AdminCardCurrency)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	c, ok := domain.ParseCurrency(code)
	if !ok {
		return Outcome{Kind: KindAskCardCurrency, Details: draft.Details}, nil
	}

	if err := s.sessions.Save(ctx, userID, state.AdminCardConfirm{Details: draft.Details, Currency: c}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindConfirmCard, Details: draft.Details, Currency: c}, nil
}

// ConfirmCard persists the drafted card as active.
func (s *Service) ConfirmCard(ctx context.Context, userID int64) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}
	draft, ok := step.(state.AdminCardConfirm)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	input := cardInput{Details: draft.Details, Currency: draft.Currency}
	if err := s.validate.Struct(input); err != nil {
		if err := s.sessions.Reset(ctx, userID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindInvalidCardDetails}, nil
	}

	card := &domain.Card{Details: input.Details, Currency: input.Currency, Active: true}
	if err := s.stores.AddCard(ctx, card); err != nil {
		return Outcome{}, fmt.Errorf("add card: %w", err)
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		return Outcome{}, err
	}

	s.log.Info("card added",
		slog.Int64("card_id", card.ID),
		slog.String("currency", string(card.Currency)),
		slog.String("card", card.Details),
	)
	return Outcome{Kind: KindCardAdded, Card: card, Currency: card.Currency}, nil
}

// CancelCard drops the add-card draft.
func (s *Service) CancelCard(ctx context.Context, userID int64) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindCardCancelled}, nil
}

// BeginSupportEdit asks for a new support message.
func (s *Service) BeginSupportEdit(ctx context.Context, userID int64) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}
	if err := s.sessions.Save(ctx, userID, state.AdminSupportText{}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindAskSupportText}, nil
}

func (s *Service) SubmitSupportText(ctx context.Context, userID int64, text string) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}
	if _, ok := step.(state.AdminSupportText); !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	text = normalize(text)
	if err := s.validate.Var(text, fmt.Sprintf("required,max=%d", maxSupportMessage)); err != nil {
		return Outcome{Kind: KindInvalidSupportText}, nil
	}

	if err := s.sessions.Save(ctx, userID, state.AdminSupportConfirm{Text: text}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindConfirmSupport, Text: text}, nil
}

func (s *Service) ConfirmSupport(ctx context.Context, userID int64) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}

	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}
	draft, ok := step.(state.AdminSupportConfirm)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	if err := s.settings.SetSupportMessage(ctx, draft.Text); err != nil {
		return Outcome{}, err
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		return Outcome{}, err
	}

	s.log.Info("support message updated", slog.Int("length", len(draft.Text)))
	return Outcome{Kind: KindSupportSaved, Text: draft.Text}, nil
}

func (s *Service) CancelSupport(ctx context.Context, userID int64) (Outcome, error) {
	if err := s.guard(userID); err != nil {
		return Outcome{}, err
	}
	if err := s.sessions.Reset(ctx, userID); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindSupportCancelled}, nil
}
