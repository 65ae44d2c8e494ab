package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/Proton-105/donation-bot/internal/domain"
)

var cardColumns = []string{"id", "details", "currency", "is_active", "created_at"}

// ListCards returns every card, newest first.
func (r *Postgres) ListCards(ctx context.Context) ([]domain.Card, error) {
	query := psql.Select(cardColumns...).From("cards").OrderBy("created_at DESC", "id DESC")

	var cards []domain.Card
	if err := r.selectAll(ctx, &cards, query); err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	return cards, nil
}

func (r *Postgres) GetCard(ctx context.Context, id int64) (*domain.Card, error) {
	query := psql.Select(cardColumns...).From("cards").Where(sq.Eq{"id": id})

	var card domain.Card
	if err := r.selectOne(ctx, &card, query); err != nil {
		return nil, fmt.Errorf("select card %d: %w", id, err)
	}
	return &card, nil
}

func (r *Postgres) AddCard(ctx context.Context, card *domain.Card) error {
	const query = `
		INSERT INTO cards (details, currency, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	var row insertedRow
	if err := r.db.GetContext(ctx, &row, query, card.Details, card.Currency, card.Active); err != nil {
		return fmt.Errorf("insert card: %w", err)
	}

	card.ID = row.ID
	card.CreatedAt = row.CreatedAt
	return nil
}

func (r *Postgres) SetCardActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cards SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update card %d: %w", id, err)
	}
	return expectRow(res)
}

func (r *Postgres) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	return expectRow(res)
}

// ActiveCards returns the rotation order for a currency: oldest first, ties by id.
func (r *Postgres) ActiveCards(ctx context.Context, currency domain.Currency) ([]domain.Card, error) {
	query := psql.Select(cardColumns...).
		From("cards").
		Where(sq.Eq{"currency": currency}).
		Where("is_active").
		OrderBy("created_at", "id")

	var cards []domain.Card
	if err := r.selectAll(ctx, &cards, query); err != nil {
		return nil, fmt.Errorf("select active cards: %w", err)
	}
	return cards, nil
}

func (r *Postgres) CurrenciesWithActiveCards(ctx context.Context) ([]domain.Currency, error) {
	var found []domain.Currency
	if err := r.db.SelectContext(ctx, &found, `SELECT DISTINCT currency FROM cards WHERE is_active`); err != nil {
		return nil, fmt.Errorf("select card currencies: %w", err)
	}
	return domain.SortCanonical(found), nil
}
