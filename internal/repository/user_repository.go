package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
)

const userColumns = `telegram_id, first_name, username, language, preferred_referrer_id, created_at`

// GetUser retrieves a user by their Telegram identifier.
func (r *Postgres) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, telegramID); err != nil {
		return nil, r.wrapUser("select user", telegramID, notFound(err))
	}
	return &user, nil
}

type upsertedUser struct {
	domain.User
	Inserted bool `db:"inserted"`
}

// AddUser inserts the user or refreshes the name fields of an existing row.
// The insert reports itself through the xmax system column.
func (r *Postgres) AddUser(ctx context.Context, user *domain.User) (bool, error) {
	const query = `
		INSERT INTO users (telegram_id, first_name, username, language, preferred_referrer_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    username = EXCLUDED.username
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	referrer := user.PreferredReferrer
	if referrer == user.TelegramID {
		referrer = 0
	}

	var row upsertedUser
	if err := r.db.GetContext(ctx, &row, query,
		user.TelegramID,
		user.FirstName,
		user.Username,
		user.Language,
		referrer,
	); err != nil {
		return false, r.wrapUser("upsert user", user.TelegramID, err)
	}

	*user = row.User
	return row.Inserted, nil
}

func (r *Postgres) SetUserLanguage(ctx context.Context, telegramID int64, lang string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET language = $2 WHERE telegram_id = $1`, telegramID, lang)
	if err != nil {
		return r.wrapUser("update language", telegramID, err)
	}
	return expectRow(res)
}

func (r *Postgres) GetUserLanguage(ctx context.Context, telegramID int64) (string, error) {
	var lang string
	if err := r.db.GetContext(ctx, &lang, `SELECT language FROM users WHERE telegram_id = $1`, telegramID); err != nil {
		return "", r.wrapUser("select language", telegramID, notFound(err))
	}
	return lang, nil
}

// SetPreferredReferrer stores the referrer; a self reference clears it.
func (r *Postgres) SetPreferredReferrer(ctx context.Context, telegramID, referrerID int64) error {
	if referrerID == telegramID {
		referrerID = 0
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET preferred_referrer_id = $2 WHERE telegram_id = $1`, telegramID, referrerID)
	if err != nil {
		return r.wrapUser("update preferred referrer", telegramID, err)
	}
	return expectRow(res)
}

func (r *Postgres) GetPreferredReferrer(ctx context.Context, telegramID int64) (int64, error) {
	var referrer int64
	if err := r.db.GetContext(ctx, &referrer, `SELECT preferred_referrer_id FROM users WHERE telegram_id = $1`, telegramID); err != nil {
		return 0, r.wrapUser("select preferred referrer", telegramID, notFound(err))
	}
	return referrer, nil
}

// UserTotalDonated sums the user's approved donations across currencies.
func (r *Postgres) UserTotalDonated(ctx context.Context, telegramID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1 AND status = $2`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, telegramID, domain.StatusApproved); err != nil {
		return decimal.Zero, r.wrapUser("sum donations", telegramID, err)
	}
	return total, nil
}

func (r *Postgres) wrapUser(op string, telegramID int64, err error) error {
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		r.log.Error("user query failed", slog.String("op", op), slog.Int64("telegram_id", telegramID), slog.Any("error", err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
