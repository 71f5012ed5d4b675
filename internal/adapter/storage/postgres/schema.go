package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id           UUID PRIMARY KEY,
		username          TEXT NOT NULL UNIQUE,
		hashed_password   TEXT NOT NULL,
		salt              TEXT NOT NULL,
		registration_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id       UUID NOT NULL REFERENCES users (user_id),
		currency_code TEXT NOT NULL,
		balance       NUMERIC NOT NULL CHECK (balance >= 0),
		updated_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, currency_code)
	)`,
	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id            TEXT PRIMARY KEY,
		from_currency TEXT NOT NULL,
		to_currency   TEXT NOT NULL,
		rate          DOUBLE PRECISION NOT NULL,
		timestamp     TIMESTAMPTZ NOT NULL,
		source        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS exchange_rates_pair_ts
		ON exchange_rates (from_currency, to_currency, timestamp DESC)`,
}

// EnsureSchema creates the tables the repositories need if they are missing.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
