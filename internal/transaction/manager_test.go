package transaction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/internal/store/memory"
)

type mockPicker struct {
	mock.Mock
}

func (m *mockPicker) Next(ctx context.Context, c domain.Currency) (*domain.Card, error) {
	args := m.Called(ctx, c)
	card, _ := args.Get(0).(*domain.Card)
	return card, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_CreateAssignsCard(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	picker := &mockPicker{}
	card := &domain.Card{ID: 7, Details: "4444", Currency: domain.CurrencyUSD, Active: true}
	picker.On("Next", mock.Anything, domain.CurrencyUSD).Return(card, nil).Once()

	m := NewManager(st, picker, testLogger())
	tx, got, err := m.Create(ctx, 1, decimal.RequireFromString("25.50"), 2, domain.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, card, got)
	assert.Equal(t, domain.StatusPendingProof, tx.Status)
	assert.Equal(t, int64(2), tx.RecipientID)

	stored, err := st.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("25.50").Equal(stored.Amount))
	picker.AssertExpectations(t)
}

func TestManager_CreateWithoutCardWritesNothing(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	picker := &mockPicker{}
	picker.On("Next", mock.Anything, domain.CurrencyUAH).Return(nil, nil).Once()

	m := NewManager(st, picker, testLogger())
	tx, card, err := m.Create(ctx, 1, decimal.NewFromInt(5), 2, domain.CurrencyUAH)
	assert.ErrorIs(t, err, ErrNoActiveCard)
	assert.Nil(t, tx)
	assert.Nil(t, card)

	history, err := st.GetUserHistory(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestManager_CreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		amount    decimal.Decimal
		recipient int64
		currency  domain.Currency
		want      error
	}{
		{name: "zero amount", amount: decimal.Zero, recipient: 2, currency: domain.CurrencyUSD, want: ErrInvalidAmount},
		{name: "negative amount", amount: decimal.NewFromInt(-1), recipient: 2, currency: domain.CurrencyUSD, want: ErrInvalidAmount},
		{name: "no recipient", amount: decimal.NewFromInt(1), recipient: 0, currency: domain.CurrencyUSD, want: ErrRecipientRequired},
		{name: "self recipient", amount: decimal.NewFromInt(1), recipient: 1, currency: domain.CurrencyUSD, want: ErrSelfDonation},
		{name: "unknown currency", amount: decimal.NewFromInt(1), recipient: 2, currency: domain.Currency("EUR"), want: ErrUnsupportedCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			picker := &mockPicker{}
			m := NewManager(memory.New(), picker, testLogger())

			_, _, err := m.Create(context.Background(), 1, tt.amount, tt.recipient, tt.currency)
			assert.ErrorIs(t, err, tt.want)
			picker.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
		})
	}
}

func TestManager_CreatePickerError(t *testing.T) {
	picker := &mockPicker{}
	picker.On("Next", mock.Anything, domain.CurrencyUSD).Return(nil, errors.New("lock timeout")).Once()

	m := NewManager(memory.New(), picker, testLogger())
	_, _, err := m.Create(context.Background(), 1, decimal.NewFromInt(1), 2, domain.CurrencyUSD)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoActiveCard)
}

func newPendingTx(t *testing.T, st *memory.Store) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{UserID: 1, Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, RecipientID: 2}
	require.NoError(t, st.CreateTransaction(context.Background(), tx))
	return tx
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	m := NewManager(st, &mockPicker{}, testLogger())
	tx := newPendingTx(t, st)

	_, err := m.SetStatus(ctx, tx.ID, domain.StatusApproved)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	updated, err := m.AttachProof(ctx, tx.ID, "photo-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, updated.Status)
	assert.Equal(t, "photo-1", updated.ProofRef)

	_, err = m.AttachProof(ctx, tx.ID, "photo-2")
	assert.ErrorIs(t, err, ErrNotPendingProof)

	updated, err = m.SetStatus(ctx, tx.ID, domain.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, updated.Status)

	_, err = m.SetStatus(ctx, tx.ID, domain.StatusRejected)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = m.SetStatus(ctx, tx.ID, domain.StatusPendingProof)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	assert.ErrorIs(t, m.Discard(ctx, tx.ID), ErrNotPendingProof)
}

func TestManager_Discard(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	m := NewManager(st, &mockPicker{}, testLogger())
	tx := newPendingTx(t, st)

	require.NoError(t, m.Discard(ctx, tx.ID))

	_, err := st.GetTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, m.Discard(ctx, tx.ID), store.ErrNotFound)
}

// proofOnRead attaches a proof right after the transaction is read, as a donor
// submitting concurrently with the session sweeper would.
type proofOnRead struct {
	*memory.Store
}

func (s proofOnRead) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	tx, err := s.Store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Store.UpdateTransactionProof(ctx, id, "photo"); err != nil {
		return nil, err
	}
	return tx, nil
}

func TestManager_DiscardKeepsTransactionWithLateProof(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	tx := newPendingTx(t, st)
	m := NewManager(proofOnRead{Store: st}, &mockPicker{}, testLogger())

	assert.ErrorIs(t, m.Discard(ctx, tx.ID), ErrNotPendingProof)

	stored, err := st.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingApproval, stored.Status)
	assert.Equal(t, "photo", stored.ProofRef)
}
