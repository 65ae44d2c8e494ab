// Package transaction owns the donation transaction lifecycle.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/pkg/metrics"
)

var (
	ErrNoActiveCard            = errors.New("no active card for currency")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrRecipientRequired       = errors.New("donation recipient is required")
	ErrSelfDonation            = errors.New("donor cannot be the recipient")
	ErrUnsupportedCurrency     = errors.New("unsupported currency")
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")
	ErrNotPendingProof         = errors.New("transaction is not awaiting proof")
)

// CardPicker hands out the card for a new transaction.
type CardPicker interface {
	Next(ctx context.Context, c domain.Currency) (*domain.Card, error)
}

// Manager creates transactions and moves them through their statuses.
type Manager struct {
	store store.TransactionStore
	cards CardPicker
	log   *slog.Logger
}

func NewManager(st store.TransactionStore, cards CardPicker, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, cards: cards, log: log}
}

// Create assigns a card and persists a pending_proof transaction. No row is written
// when the currency has no active card.
func (m *Manager) Create(ctx context.Context, donor int64, amount decimal.Decimal, recipient int64, c domain.Currency) (*domain.Transaction, *domain.Card, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if recipient <= 0 {
		return nil, nil, ErrRecipientRequired
	}
	if recipient == donor {
		return nil, nil, ErrSelfDonation
	}
	if !c.Supported() {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
	}

	card, err := m.cards.Next(ctx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("select card: %w", err)
	}
	metrics.RecordCardSelection(string(c), card != nil)
	if card == nil {
		m.log.Warn("no active card for donation", slog.Int64("user_id", donor), slog.String("currency", string(c)))
		return nil, nil, ErrNoActiveCard
	}

	tx := &domain.Transaction{
		UserID:      donor,
		Amount:      amount,
		Currency:    c,
		Status:      domain.StatusPendingProof,
		RecipientID: recipient,
	}
	if err := m.store.CreateTransaction(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("create transaction: %w", err)
	}

	metrics.RecordTransaction("created", string(c))
	m.log.Info("transaction created",
		slog.Int64("transaction_id", tx.ID),
		slog.Int64("user_id", donor),
		slog.Int64("recipient_id", recipient),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("currency", string(c)),
		slog.Int64("card_id", card.ID),
	)

	return tx, card, nil
}

// Get loads a transaction.
func (m *Manager) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	tx, err := m.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// AttachProof records the proof reference and advances the transaction to
// pending_approval.
func (m *Manager) AttachProof(ctx context.Context, id int64, proofRef string) (*domain.Transaction, error) {
	if err := m.store.UpdateTransactionProof(ctx, id, proofRef); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, fmt.Errorf("attach proof to %d: %w", id, ErrNotPendingProof)
		}
		return nil, fmt.Errorf("attach proof to %d: %w", id, err)
	}

	tx, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransaction("proof_attached", string(tx.Currency))
	m.log.Info("proof attached", slog.Int64("transaction_id", id))
	return tx, nil
}

// SetStatus moves a transaction forward. Backward or repeated transitions return
// ErrInvalidStatusTransition; a concurrent change returns store.ErrStatusConflict.
func (m *Manager) SetStatus(ctx context.Context, id int64, to domain.Status) (*domain.Transaction, error) {
	tx, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !tx.Status.CanTransitionTo(to) {
		return tx, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, tx.Status, to)
	}

	if err := m.store.UpdateTransactionStatus(ctx, id, tx.Status, to); err != nil {
		return tx, fmt.Errorf("update transaction %d status: %w", id, err)
	}

	from := tx.Status
	tx.Status = to

	metrics.RecordTransaction(string(to), string(tx.Currency))
	m.log.Info("transaction status changed",
		slog.Int64("transaction_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	return tx, nil
}

// Discard hard-deletes a transaction that never received proof.
func (m *Manager) Discard(ctx context.Context, id int64) error {
	tx, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if tx.Status != domain.StatusPendingProof {
		return fmt.Errorf("discard transaction %d: %w", id, ErrNotPendingProof)
	}

	if err := m.store.DeleteTransaction(ctx, id, domain.StatusPendingProof); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			// proof arrived after the read above
			return fmt.Errorf("discard transaction %d: %w", id, ErrNotPendingProof)
		}
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	metrics.RecordTransaction("discarded", string(tx.Currency))
	m.log.Info("transaction discarded", slog.Int64("transaction_id", id))
	return nil
}

// History returns the latest transactions of a donor, newest first.
func (m *Manager) History(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	history, err := m.store.GetUserHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return history, nil
}

// Stats aggregates donation totals.
func (m *Manager) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := m.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
