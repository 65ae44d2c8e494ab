package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)

func tickingClock() func() time.Time {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestStore_TransactionStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := &domain.Transaction{UserID: 1, Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, RecipientID: 2}
	require.NoError(t, s.CreateTransaction(ctx, tx))
	assert.Equal(t, int64(1), tx.ID)
	assert.Equal(t, domain.StatusPendingProof, tx.Status)

	err := s.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPendingApproval, domain.StatusApproved)
	assert.ErrorIs(t, err, store.ErrStatusConflict)

	require.NoError(t, s.UpdateTransactionProof(ctx, tx.ID, "file-1"))
	require.NoError(t, s.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPendingApproval, domain.StatusApproved))

	err = s.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPendingApproval, domain.StatusRejected)
	assert.ErrorIs(t, err, store.ErrStatusConflict)

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, "file-1", got.ProofRef)
}

func TestStore_HistoryNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(tickingClock())

	for i := 0; i < 12; i++ {
		require.NoError(t, s.CreateTransaction(ctx, &domain.Transaction{UserID: 5, Amount: decimal.NewFromInt(1), Currency: domain.CurrencyUAH}))
	}
	require.NoError(t, s.CreateTransaction(ctx, &domain.Transaction{UserID: 6, Amount: decimal.NewFromInt(1), Currency: domain.CurrencyUAH}))

	history, err := s.GetUserHistory(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, history, 10)
	assert.Equal(t, int64(12), history[0].ID)
	assert.Equal(t, int64(3), history[9].ID)

	history, err = s.GetUserHistory(ctx, 5, 0)
	require.NoError(t, err)
	assert.Len(t, history, store.DefaultHistoryLimit)
}

func TestStore_DeleteTransactionOnlyInStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := &domain.Transaction{UserID: 1, Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, RecipientID: 2}
	require.NoError(t, s.CreateTransaction(ctx, tx))
	require.NoError(t, s.UpdateTransactionProof(ctx, tx.ID, "file-1"))

	assert.ErrorIs(t, s.DeleteTransaction(ctx, tx.ID, domain.StatusPendingProof), store.ErrStatusConflict)
	_, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteTransaction(ctx, tx.ID, domain.StatusPendingApproval))
	assert.ErrorIs(t, s.DeleteTransaction(ctx, tx.ID, domain.StatusPendingApproval), store.ErrNotFound)
}

func TestStore_ActiveCardsOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(tickingClock())

	for _, details := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddCard(ctx, &domain.Card{Details: details, Currency: domain.CurrencyUSD, Active: true}))
	}
	require.NoError(t, s.AddCard(ctx, &domain.Card{Details: "uah", Currency: domain.CurrencyUAH, Active: false}))
	require.NoError(t, s.SetCardActive(ctx, 2, false))

	cards, err := s.ActiveCards(ctx, domain.CurrencyUSD)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "a", cards[0].Details)
	assert.Equal(t, "c", cards[1].Details)

	currencies, err := s.CurrenciesWithActiveCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyUSD}, currencies)

	assert.ErrorIs(t, s.SetCardActive(ctx, 99, true), store.ErrNotFound)
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := New()

	mk := func(user int64, amount string, ccy domain.Currency, final domain.Status) {
		tx := &domain.Transaction{UserID: user, Amount: decimal.RequireFromString(amount), Currency: ccy}
		require.NoError(t, s.CreateTransaction(ctx, tx))
		if final == domain.StatusPendingProof {
			return
		}
		require.NoError(t, s.UpdateTransactionProof(ctx, tx.ID, "p"))
		if final != domain.StatusPendingApproval {
			require.NoError(t, s.UpdateTransactionStatus(ctx, tx.ID, domain.StatusPendingApproval, final))
		}
	}

	mk(1, "10.50", domain.CurrencyUSD, domain.StatusApproved)
	mk(1, "5", domain.CurrencyUAH, domain.StatusApproved)
	mk(2, "7", domain.CurrencyUSD, domain.StatusApproved)
	mk(3, "100", domain.CurrencyUSD, domain.StatusRejected)
	mk(4, "1", domain.CurrencyUSD, domain.StatusPendingApproval)
	mk(5, "1", domain.CurrencyUSD, domain.StatusPendingProof)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("22.50").Equal(stats.TotalRaised))
	assert.True(t, decimal.RequireFromString("17.50").Equal(stats.RaisedByCurrency[domain.CurrencyUSD]))
	assert.Equal(t, 1, stats.PendingReviews)
	assert.Equal(t, 2, stats.TotalDonors)

	total, err := s.UserTotalDonated(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.50").Equal(total))
}

func TestStore_PreferredReferrerExcludesSelf(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.AddUser(ctx, &domain.User{TelegramID: 10, FirstName: "Ann"})
	require.NoError(t, err)

	require.NoError(t, s.SetPreferredReferrer(ctx, 10, 10))
	ref, err := s.GetPreferredReferrer(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, ref)

	require.NoError(t, s.SetPreferredReferrer(ctx, 10, 20))
	ref, err = s.GetPreferredReferrer(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), ref)

	created, err := s.AddUser(ctx, &domain.User{TelegramID: 10, FirstName: "Anna"})
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.GetUser(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, int64(20), u.PreferredReferrer)
}
