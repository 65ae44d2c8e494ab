package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)

func TestGetUserNotFound(t *testing.T) {
	repo := newTestRepo(stubDB{
		getFn: func(_ context.Context, _ any, query string, args ...any) error {
			assert.Contains(t, query, "FROM users WHERE telegram_id = $1")
			assert.Equal(t, []any{int64(5)}, args)
			return sql.ErrNoRows
		},
	})

	_, err := repo.GetUser(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddUserClearsSelfReferrer(t *testing.T) {
	repo := newTestRepo(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			assert.Contains(t, query, "ON CONFLICT (telegram_id) DO UPDATE")
			require.Len(t, args, 5)
			assert.Equal(t, int64(0), args[4])

			row := dest.(*upsertedUser)
			row.User = domain.User{TelegramID: 7, FirstName: "Ann"}
			row.Inserted = true
			return nil
		},
	})

	user := &domain.User{TelegramID: 7, FirstName: "Ann", PreferredReferrer: 7}
	created, err := repo.AddUser(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, user.PreferredReferrer)
}

func TestSetUserLanguageMissingRow(t *testing.T) {
	repo := newTestRepo(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			assert.True(t, strings.HasPrefix(query, "UPDATE users SET language"))
			return stubResult{rows: 0}, nil
		},
	})

	assert.ErrorIs(t, repo.SetUserLanguage(context.Background(), 1, "ru"), store.ErrNotFound)
}

func TestCreateTransaction(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepo(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			assert.Contains(t, query, "INSERT INTO transactions")
			assert.Contains(t, query, "RETURNING id, created_at")
			require.Len(t, args, 5)
			assert.Equal(t, domain.StatusPendingProof, args[3])

			row := dest.(*insertedRow)
			row.ID = 42
			row.CreatedAt = created
			return nil
		},
	})

	tx := &domain.Transaction{UserID: 1, RecipientID: 2, Amount: decimal.NewFromInt(100), Currency: domain.CurrencyUAH}
	require.NoError(t, repo.CreateTransaction(context.Background(), tx))
	assert.Equal(t, int64(42), tx.ID)
	assert.Equal(t, created, tx.CreatedAt)
	assert.Equal(t, domain.StatusPendingProof, tx.Status)
}

func TestUpdateTransactionStatusConditional(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		exists  bool
		wantErr error
	}{
		{name: "updated", rows: 1},
		{name: "status changed", rows: 0, exists: true, wantErr: store.ErrStatusConflict},
		{name: "missing", rows: 0, exists: false, wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(stubDB{
				execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
					assert.Contains(t, query, "WHERE id = $1 AND status = $2")
					assert.Equal(t, []any{int64(9), domain.StatusPendingApproval, domain.StatusApproved}, args)
					return stubResult{rows: tt.rows}, nil
				},
				getFn: func(_ context.Context, dest any, query string, _ ...any) error {
					assert.Contains(t, query, "SELECT EXISTS")
					*dest.(*bool) = tt.exists
					return nil
				},
			})

			err := repo.UpdateTransactionStatus(context.Background(), 9, domain.StatusPendingApproval, domain.StatusApproved)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDeleteTransactionOnlyInStatus(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		exists  bool
		wantErr error
	}{
		{name: "deleted", rows: 1},
		{name: "proof attached", rows: 0, exists: true, wantErr: store.ErrStatusConflict},
		{name: "missing", rows: 0, exists: false, wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(stubDB{
				execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
					assert.Contains(t, query, "DELETE FROM transactions WHERE id = $1 AND status = $2")
					assert.Equal(t, []any{int64(4), domain.StatusPendingProof}, args)
					return stubResult{rows: tt.rows}, nil
				},
				getFn: func(_ context.Context, dest any, _ string, _ ...any) error {
					*dest.(*bool) = tt.exists
					return nil
				},
			})

			err := repo.DeleteTransaction(context.Background(), 4, domain.StatusPendingProof)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateTransactionProof(t *testing.T) {
	repo := newTestRepo(stubDB{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			assert.Contains(t, query, "SET proof_ref = $2, status = $3")
			assert.Equal(t, []any{int64(3), "file-id", domain.StatusPendingApproval, domain.StatusPendingProof}, args)
			return stubResult{rows: 1}, nil
		},
	})

	assert.NoError(t, repo.UpdateTransactionProof(context.Background(), 3, "file-id"))
}

func TestGetUserHistoryDefaultsLimit(t *testing.T) {
	repo := newTestRepo(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			assert.Contains(t, query, "WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT 10")
			assert.Equal(t, []any{int64(1)}, args)
			*dest.(*[]domain.Transaction) = []domain.Transaction{{ID: 2}, {ID: 1}}
			return nil
		},
	})

	history, err := repo.GetUserHistory(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestGetStats(t *testing.T) {
	repo := newTestRepo(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			assert.Contains(t, query, "GROUP BY currency")
			assert.Equal(t, []any{domain.StatusApproved}, args)

			*dest.(*[]raisedRow) = []raisedRow{
				{Currency: domain.CurrencyUSD, Total: decimal.RequireFromString("10.50")},
				{Currency: domain.CurrencyUAH, Total: decimal.NewFromInt(300)},
			}
			return nil
		},
		getFn: func(_ context.Context, dest any, query string, _ ...any) error {
			assert.Contains(t, query, "FILTER")
			counts := dest.(*statCounters)
			counts.Pending = 2
			counts.Donors = 4
			return nil
		},
	})

	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PendingReviews)
	assert.Equal(t, 4, stats.TotalDonors)
	assert.True(t, stats.TotalRaised.Equal(decimal.RequireFromString("310.50")))
	assert.True(t, stats.RaisedByCurrency[domain.CurrencyUSD].Equal(decimal.RequireFromString("10.5")))
}

func TestGetSetting(t *testing.T) {
	repo := newTestRepo(stubDB{
		selectFn: func(_ context.Context, dest any, _ string, args ...any) error {
			if args[0] == "present" {
				*dest.(*[]string) = []string{"v"}
			}
			return nil
		},
	})

	value, found, err := repo.GetSetting(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", value)

	_, found, err = repo.GetSetting(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCardQueries(t *testing.T) {
	boom := errors.New("connection refused")
	repo := newTestRepo(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			switch {
			case strings.Contains(query, "DISTINCT currency"):
				*dest.(*[]domain.Currency) = []domain.Currency{domain.CurrencyUSD, domain.CurrencyUAH}
				return nil
			case strings.Contains(query, "ORDER BY created_at, id"):
				assert.Equal(t, []any{domain.CurrencyRUB}, args)
				return boom
			}
			t.Fatalf("unexpected query: %s", query)
			return nil
		},
		execFn: func(_ context.Context, query string, _ ...any) (sql.Result, error) {
			assert.Contains(t, query, "DELETE FROM cards")
			return stubResult{rows: 0}, nil
		},
	})
	ctx := context.Background()

	currencies, err := repo.CurrenciesWithActiveCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyUAH, domain.CurrencyUSD}, currencies)

	_, err = repo.ActiveCards(ctx, domain.CurrencyRUB)
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, repo.DeleteCard(ctx, 1), store.ErrNotFound)
}
