package repository

import (
	"context"
	"fmt"
)

// GetSetting reports found=false for a missing key.
func (r *Postgres) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var values []string
	if err := r.db.SelectContext(ctx, &values, `SELECT value FROM settings WHERE key = $1`, key); err != nil {
		return "", false, fmt.Errorf("select setting %q: %w", key, err)
	}
	if len(values) == 0 {
		return "", false, nil
	}
	return values[0], true, nil
}

func (r *Postgres) SetSetting(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert setting %q: %w", key, err)
	}
	return nil
}
