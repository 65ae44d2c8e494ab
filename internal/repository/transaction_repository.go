package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)


var transactionColumns = []string{"id", "user_id", "amount", "currency", "status", "proof_ref", "recipient_id", "created_at"}

// CreateTransaction inserts tx and fills its id, status and creation time.
func (r *Postgres) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (user_id, amount, currency, status, recipient_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if tx.Status == "" {
		tx.Status = domain.StatusPendingProof
	}

	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, tx.UserID, tx.Amount, tx.Currency, tx.Status, tx.RecipientID); err != nil {
		r.log.Error("failed to create transaction", slog.Int64("user_id", tx.UserID), slog.Any("error", err))
		return fmt.Errorf("insert transaction: %w", err)
	}

	tx.ID = row.ID
	tx.CreatedAt = row.CreatedAt
	return nil
}

func (r *Postgres) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := psql.Select(transactionColumns...).From("transactions").Where(sq.Eq{"id": id})

	var tx domain.Transaction
	if err := r.selectOne(ctx, &tx, query); err != nil {
		return nil, fmt.Errorf("select transaction %d: %w", id, err)
	}
	return &tx, nil
}

// UpdateTransactionProof attaches the proof and moves pending_proof to pending_approval.
func (r *Postgres) UpdateTransactionProof(ctx context.Context, id int64, proofRef string) error {
	const query = `
		UPDATE transactions
		SET proof_ref = $2, status = $3
		WHERE id = $1 AND status = $4
	`

	res, err := r.db.ExecContext(ctx, query, id, proofRef, domain.StatusPendingApproval, domain.StatusPendingProof)
	if err != nil {
		return fmt.Errorf("update transaction proof %d: %w", id, err)
	}
	return r.conditional(ctx, res, id)
}

// UpdateTransactionStatus is a compare-and-set on the status column.
func (r *Postgres) UpdateTransactionStatus(ctx context.Context, id int64, from, to domain.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update transaction status %d: %w", id, err)
	}
	return r.conditional(ctx, res, id)
}

func (r *Postgres) DeleteTransaction(ctx context.Context, id int64, status domain.Status) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return r.conditional(ctx, res, id)
}

// GetUserHistory returns the user's newest transactions first.
func (r *Postgres) GetUserHistory(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}

	query := psql.Select(transactionColumns...).
		From("transactions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	history := make([]domain.Transaction, 0, limit)
	if err := r.selectAll(ctx, &history, query); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	return history, nil
}

type raisedRow struct {
	Currency domain.Currency `db:"currency"`
	Total    decimal.Decimal `db:"total"`
}

type statCounters struct {
	Pending int `db:"pending"`
	Donors  int `db:"donors"`
}

func (r *Postgres) GetStats(ctx context.Context) (*domain.Stats, error) {
	const byCurrency = `
		SELECT currency, SUM(amount) AS total
		FROM transactions
		WHERE status = $1
		GROUP BY currency
	`
	const counters = `
		SELECT
			COUNT(*) FILTER (WHERE status = $1) AS pending,
			COUNT(DISTINCT user_id) FILTER (WHERE status = $2) AS donors
		FROM transactions
	`

	var raised []raisedRow
	if err := r.db.SelectContext(ctx, &raised, byCurrency, domain.StatusApproved); err != nil {
		return nil, fmt.Errorf("select raised: %w", err)
	}

	var counts statCounters
	if err := r.db.GetContext(ctx, &counts, counters, domain.StatusPendingApproval, domain.StatusApproved); err != nil {
		return nil, fmt.Errorf("select counters: %w", err)
	}

	stats := &domain.Stats{
		TotalRaised:      decimal.Zero,
		RaisedByCurrency: make(map[domain.Currency]decimal.Decimal, len(raised)),
		PendingReviews:   counts.Pending,
		TotalDonors:      counts.Donors,
	}
	for _, row := range raised {
		stats.RaisedByCurrency[row.Currency] = row.Total
		stats.TotalRaised = stats.TotalRaised.Add(row.Total)
	}
	return stats, nil
}

// conditional tells a missing row from a status mismatch after a conditional update.
func (r *Postgres) conditional(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check transaction %d: %w", id, err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrStatusConflict
}
