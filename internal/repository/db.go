// Package repository implements store.Store on PostgreSQL through sqlx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/Proton-105/donation-bot/internal/store"
	"github.com/Proton-105/donation-bot/pkg/config"
)

// psql builds queries with postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	Execer
	Getter
	Selecter
}

// Connect opens the pool described by cfg and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Postgres is the SQL-backed store.
type Postgres struct {
	db  DB
	log *slog.Logger
}

var _ store.Store = (*Postgres)(nil)

func NewPostgres(db DB, log *slog.Logger) *Postgres {
	if log == nil {
		log = slog.Default()
	}
	return &Postgres{db: db, log: log}
}

// insertedRow is the RETURNING clause of inserts.
type insertedRow struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

// notFound maps sql.ErrNoRows to store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// selectAll renders query and scans every row into dest.
func (r *Postgres) selectAll(ctx context.Context, dest any, query sq.SelectBuilder) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return r.db.SelectContext(ctx, dest, sqlStr, args...)
}

// selectOne renders query and scans a single row into dest.
func (r *Postgres) selectOne(ctx context.Context, dest any, query sq.SelectBuilder) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return notFound(r.db.GetContext(ctx, dest, sqlStr, args...))
}

// expectRow returns store.ErrNotFound when an update or delete matched nothing.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
