// Package donation drives the donor conversation from the donate request to the
// recipient's decision.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/currency"
	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/referral"
	"github.com/Proton-105/donation-bot/internal/state"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/internal/transaction"
)

// ErrNotAuthorized is returned when someone other than the recipient or admin decides.
var ErrNotAuthorized = errors.New("not allowed to decide on this transaction")

// ErrAwaitingProof is returned when a decision targets a transaction without proof.
var ErrAwaitingProof = errors.New("transaction has no proof to review")

// SessionStore persists typed conversation steps.
type SessionStore interface {
	Load(ctx context.Context, userID int64) (state.Step, error)
	Save(ctx context.Context, userID int64, step state.Step) error
	Reset(ctx context.Context, userID int64) error
}

// Currencies answers which currencies can be offered.
type Currencies interface {
	Available(ctx context.Context) ([]domain.Currency, error)
	Check(ctx context.Context, c domain.Currency) (currency.Availability, error)
}

// Transactions is the lifecycle manager contract.
type Transactions interface {
	Create(ctx context.Context, donor int64, amount decimal.Decimal, recipient int64, c domain.Currency) (*domain.Transaction, *domain.Card, error)
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	AttachProof(ctx context.Context, id int64, proofRef string) (*domain.Transaction, error)
	SetStatus(ctx context.Context, id int64, to domain.Status) (*domain.Transaction, error)
	Discard(ctx context.Context, id int64) error
}

// Referrers reads and stores a user's preferred referrer.
type Referrers interface {
	PreferredReferrer(ctx context.Context, userID int64) (int64, error)
	SetPreferredReferrer(ctx context.Context, userID, referrerID int64) error
}

// BeginRequest starts a donation. A request coming from a donate deep link uses only
// the link's recipient; other requests fall back to the session and stored preference.
type BeginRequest struct {
	UserID    int64
	Amount    *decimal.Decimal
	Recipient int64
	FromLink  bool
}

// Service implements the donation conversation.
type Service struct {
	sessions     SessionStore
	currencies   Currencies
	transactions Transactions
	referrers    Referrers
	adminID      int64
	log          *slog.Logger
}

func NewService(sessions SessionStore, currencies Currencies, transactions Transactions, referrers Referrers, adminID int64, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		sessions:     sessions,
		currencies:   currencies,
		transactions: transactions,
		referrers:    referrers,
		adminID:      adminID,
		log:          log,
	}
}

// Begin resolves the recipient and moves the donor to the currency choice.
func (s *Service) Begin(ctx context.Context, req BeginRequest) (Outcome, error) {
	step, err := s.sessions.Load(ctx, req.UserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	if proof, ok := step.(state.AwaitingProof); ok {
		s.discardPending(ctx, proof.TransactionID)
	}

	sessionRecipient := recipientOf(step)

	var recipient int64
	if req.FromLink {
		recipient = referral.Resolve(req.UserID, req.Recipient, 0, 0)
	} else {
		preferred, err := s.referrers.PreferredReferrer(ctx, req.UserID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Outcome{}, fmt.Errorf("load preferred referrer: %w", err)
		}
		recipient = referral.Resolve(req.UserID, req.Recipient, sessionRecipient, preferred)
	}

	if recipient == 0 {
		if err := s.sessions.Save(ctx, req.UserID, state.Idle{Recipient: sessionRecipient}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindReferralRequired}, nil
	}

	if req.Recipient == recipient {
		if err := s.referrers.SetPreferredReferrer(ctx, req.UserID, recipient); err != nil {
			s.log.Warn("failed to store preferred referrer", slog.Int64("user_id", req.UserID), slog.Any("error", err))
		}
	}

	available, err := s.currencies.Available(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(available) == 0 {
		if err := s.sessions.Save(ctx, req.UserID, state.Idle{Recipient: recipient}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindNoCurrencies, Recipient: recipient}, nil
	}

	if err := s.sessions.Save(ctx, req.UserID, state.AwaitingCurrency{Recipient: recipient, Amount: req.Amount}); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind:       KindChooseCurrency,
		Recipient:  recipient,
		Amount:     req.Amount,
		Currencies: available,
	}, nil
}

// Recipient returns who a donation started from the menu would go to, without
// touching the session. Zero means a referral link is needed first.
func (s *Service) Recipient(ctx context.Context, userID int64) (int64, error) {
	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}

	preferred, err := s.referrers.PreferredReferrer(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("load preferred referrer: %w", err)
	}

	return referral.Resolve(userID, 0, recipientOf(step), preferred), nil
}

// SelectCurrency handles a currency button.
func (s *Service) SelectCurrency(ctx context.Context, userID int64, code string) (Outcome, error) {
	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	awaiting, ok := step.(state.AwaitingCurrency)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	c, _ := domain.ParseCurrency(code)
	availability, err := s.currencies.Check(ctx, c)
	if err != nil {
		return Outcome{}, err
	}

	switch availability {
	case currency.Available:
	case currency.NoActiveCard:
		if err := s.sessions.Save(ctx, userID, state.Idle{Recipient: awaiting.Recipient}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindNoCard, Recipient: awaiting.Recipient, Currency: c}, nil
	default:
		available, err := s.currencies.Available(ctx)
		if err != nil {
			return Outcome{}, err
		}
		if len(available) == 0 {
			if err := s.sessions.Save(ctx, userID, state.Idle{Recipient: awaiting.Recipient}); err != nil {
				return Outcome{}, err
			}
			return Outcome{Kind: KindNoCurrencies, Recipient: awaiting.Recipient}, nil
		}
		return Outcome{
			Kind:       KindCurrencyUnavailable,
			Recipient:  awaiting.Recipient,
			Amount:     awaiting.Amount,
			Currency:   c,
			Currencies: available,
		}, nil
	}

	if awaiting.Amount != nil {
		return s.create(ctx, userID, *awaiting.Amount, awaiting.Recipient, c)
	}

	if err := s.sessions.Save(ctx, userID, state.AwaitingAmount{Recipient: awaiting.Recipient, Currency: c}); err != nil {
		return Outcome{}, err
	}
	return Outcome{Kind: KindAskAmount, Recipient: awaiting.Recipient, Currency: c}, nil
}

// EnterAmount handles free text while an amount is expected.
func (s *Service) EnterAmount(ctx context.Context, userID int64, text string) (Outcome, error) {
	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	awaiting, ok := step.(state.AwaitingAmount)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	amount, ok := referral.ParseAmount(text)
	if !ok {
		return Outcome{Kind: KindInvalidAmount, Recipient: awaiting.Recipient, Currency: awaiting.Currency}, nil
	}

	return s.create(ctx, userID, amount, awaiting.Recipient, awaiting.Currency)
}

func (s *Service) create(ctx context.Context, userID int64, amount decimal.Decimal, recipient int64, c domain.Currency) (Outcome, error) {
	tx, card, err := s.transactions.Create(ctx, userID, amount, recipient, c)
	switch {
	case errors.Is(err, transaction.ErrNoActiveCard):
		if err := s.sessions.Save(ctx, userID, state.Idle{Recipient: recipient}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindNoCard, Recipient: recipient, Currency: c}, nil
	case errors.Is(err, transaction.ErrInvalidAmount):
		return Outcome{Kind: KindInvalidAmount, Recipient: recipient, Currency: c}, nil
	case errors.Is(err, transaction.ErrRecipientRequired), errors.Is(err, transaction.ErrSelfDonation):
		if err := s.sessions.Save(ctx, userID, state.Idle{}); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: KindReferralRequired}, nil
	case err != nil:
		return Outcome{}, err
	}

	next := state.AwaitingProof{
		Recipient:     recipient,
		Amount:        tx.Amount,
		Currency:      c,
		TransactionID: tx.ID,
		CardID:        card.ID,
		CardDetails:   card.Details,
	}
	if err := s.sessions.Save(ctx, userID, next); err != nil {
		s.discardPending(ctx, tx.ID)
		return Outcome{}, err
	}

	txAmount := tx.Amount
	return Outcome{
		Kind:        KindAwaitProof,
		Recipient:   recipient,
		Amount:      &txAmount,
		Currency:    c,
		Transaction: tx,
		Card:        card,
	}, nil
}

// SubmitProof handles a message while proof is expected. Only images are accepted.
func (s *Service) SubmitProof(ctx context.Context, userID int64, fileRef string, isImage bool) (Outcome, error) {
	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	awaiting, ok := step.(state.AwaitingProof)
	if !ok {
		return Outcome{Kind: KindSessionExpired}, nil
	}

	if !isImage || fileRef == "" {
		return Outcome{Kind: KindProofRequired, Recipient: awaiting.Recipient}, nil
	}

	tx, err := s.transactions.AttachProof(ctx, awaiting.TransactionID, fileRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, transaction.ErrNotPendingProof) {
			s.log.Warn("proof for stale transaction", slog.Int64("user_id", userID), slog.Int64("transaction_id", awaiting.TransactionID))
			if err := s.sessions.Save(ctx, userID, state.Idle{Recipient: awaiting.Recipient}); err != nil {
				return Outcome{}, err
			}
			return Outcome{Kind: KindSessionExpired}, nil
		}
		return Outcome{}, err
	}

	if err := s.sessions.Save(ctx, userID, state.Idle{Recipient: awaiting.Recipient}); err != nil {
		return Outcome{}, err
	}

	amount := tx.Amount
	return Outcome{
		Kind:        KindSubmitted,
		Recipient:   tx.RecipientID,
		Amount:      &amount,
		Currency:    tx.Currency,
		Transaction: tx,
		Reviewers:   s.reviewers(tx.RecipientID),
	}, nil
}

// Cancel aborts the current flow. A transaction still waiting for proof is deleted.
func (s *Service) Cancel(ctx context.Context, userID int64) (Outcome, error) {
	step, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load session: %w", err)
	}

	if proof, ok := step.(state.AwaitingProof); ok {
		s.discardPending(ctx, proof.TransactionID)
	}

	if err := s.sessions.Reset(ctx, userID); err != nil {
		return Outcome{}, err
	}

	if _, idle := step.(state.Idle); idle {
		return Outcome{Kind: KindNothingToCancel}, nil
	}
	return Outcome{Kind: KindCancelled}, nil
}

// Decide approves or rejects a transaction awaiting review. Only the recipient or the
// admin may decide, and only once.
func (s *Service) Decide(ctx context.Context, deciderID, txID int64, approve bool) (Outcome, error) {
	tx, err := s.transactions.Get(ctx, txID)
	if err != nil {
		return Outcome{}, err
	}

	if deciderID != tx.RecipientID && (s.adminID == 0 || deciderID != s.adminID) {
		return Outcome{}, ErrNotAuthorized
	}

	if tx.Status.Terminal() {
		return Outcome{Kind: KindAlreadyDecided, Transaction: tx}, nil
	}
	if tx.Status != domain.StatusPendingApproval {
		return Outcome{}, ErrAwaitingProof
	}

	target, kind := domain.StatusRejected, KindRejected
	if approve {
		target, kind = domain.StatusApproved, KindApproved
	}

	updated, err := s.transactions.SetStatus(ctx, txID, target)
	if err != nil {
		if !errors.Is(err, store.ErrStatusConflict) && !errors.Is(err, transaction.ErrInvalidStatusTransition) {
			return Outcome{}, err
		}
		current, getErr := s.transactions.Get(ctx, txID)
		if getErr != nil {
			return Outcome{}, getErr
		}
		if !current.Status.Terminal() {
			return Outcome{}, fmt.Errorf("decide transaction %d: %w", txID, ErrAwaitingProof)
		}
		return Outcome{Kind: KindAlreadyDecided, Transaction: current}, nil
	}

	s.log.Info("donation decided",
		slog.Int64("transaction_id", txID),
		slog.Int64("decider_id", deciderID),
		slog.String("status", string(target)),
	)

	amount := updated.Amount
	return Outcome{
		Kind:        kind,
		Recipient:   updated.RecipientID,
		Amount:      &amount,
		Currency:    updated.Currency,
		Transaction: updated,
	}, nil
}

// ExpireSession is the sweeper hook: an abandoned AwaitingProof loses its pending
// transaction.
func (s *Service) ExpireSession(ctx context.Context, us *state.UserState) error {
	step, err := state.DecodeStep(us)
	if err != nil {
		return nil
	}

	proof, ok := step.(state.AwaitingProof)
	if !ok {
		return nil
	}

	err = s.transactions.Discard(ctx, proof.TransactionID)
	if err == nil || errors.Is(err, store.ErrNotFound) || errors.Is(err, transaction.ErrNotPendingProof) {
		return nil
	}
	return err
}

func (s *Service) discardPending(ctx context.Context, txID int64) {
	if txID == 0 {
		return
	}
	err := s.transactions.Discard(ctx, txID)
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, transaction.ErrNotPendingProof) {
		s.log.Error("failed to discard pending transaction", slog.Int64("transaction_id", txID), slog.Any("error", err))
	}
}

func (s *Service) reviewers(recipient int64) []int64 {
	reviewers := []int64{recipient}
	if s.adminID != 0 && s.adminID != recipient {
		reviewers = append(reviewers, s.adminID)
	}
	return reviewers
}

func recipientOf(step state.Step) int64 {
	switch st := step.(type) {
	case state.Idle:
		return st.Recipient
	case state.AwaitingCurrency:
		return st.Recipient
	case state.AwaitingAmount:
		return st.Recipient
	case state.AwaitingProof:
		return st.Recipient
	default:
		return 0
	}
}
