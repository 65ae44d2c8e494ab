// Package store declares the data-access contract shared by every backend.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
)

// DefaultHistoryLimit applies when GetUserHistory is called with a non-positive limit.
const DefaultHistoryLimit = 10

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a conditional status update finds a different status.
	ErrStatusConflict = errors.New("transaction status changed concurrently")
)

// UserStore persists users and their preferences.
type UserStore interface {
	GetUser(ctx context.Context, telegramID int64) (*domain.User, error)
	// AddUser inserts the user if absent and refreshes name fields otherwise.
	// It reports whether a new row was created.
	AddUser(ctx context.Context, user *domain.User) (bool, error)
	SetUserLanguage(ctx context.Context, telegramID int64, lang string) error
	GetUserLanguage(ctx context.Context, telegramID int64) (string, error)
	SetPreferredReferrer(ctx context.Context, telegramID, referrerID int64) error
	GetPreferredReferrer(ctx context.Context, telegramID int64) (int64, error)
	UserTotalDonated(ctx context.Context, telegramID int64) (decimal.Decimal, error)
}

// TransactionStore persists donation transactions.
type TransactionStore interface {
	// CreateTransaction assigns the id and creation time on tx.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	// UpdateTransactionProof stores proofRef and moves pending_proof to pending_approval.
	UpdateTransactionProof(ctx context.Context, id int64, proofRef string) error
	// UpdateTransactionStatus moves the transaction from one status to another only
	// if it currently holds from.
	UpdateTransactionStatus(ctx context.Context, id int64, from, to domain.Status) error
	// DeleteTransaction removes the transaction only while it still holds status.
	DeleteTransaction(ctx context.Context, id int64, status domain.Status) error
	GetUserHistory(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error)
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// CardStore persists payment cards.
type CardStore interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	AddCard(ctx context.Context, card *domain.Card) error
	SetCardActive(ctx context.Context, id int64, active bool) error
	DeleteCard(ctx context.Context, id int64) error
	// ActiveCards returns active cards of a currency ordered by creation time then id.
	ActiveCards(ctx context.Context, currency domain.Currency) ([]domain.Card, error)
	CurrenciesWithActiveCards(ctx context.Context) ([]domain.Currency, error)
}

// SettingsStore is a string key-value store.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Store groups every data-access contract.
type Store interface {
	UserStore
	TransactionStore
	CardStore
	SettingsStore
}
