package postgres

import (
	"context"
	"fmt"

	"valutatrade-hub/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// HistoryRepo implements ports.RateHistoryRepository on the exchange_rates table.
type HistoryRepo struct {
	pool Pool
	tx   *Transactor
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(pool Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool, tx: NewTransactor(pool)}
}

// Append inserts all records in one transaction. Re-appending an existing id is ignored.
func (r *HistoryRepo) Append(ctx context.Context, records []domain.RateHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	query := `INSERT INTO exchange_rates (id, from_currency, to_currency, rate, timestamp, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			_, err := tx.Exec(ctx, query,
				rec.ID, rec.FromCurrency, rec.ToCurrency, rec.Rate, rec.Timestamp, rec.Source,
			)
			if err != nil {
				return fmt.Errorf("insert rate history %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// ListByPair returns the newest records first.
func (r *HistoryRepo) ListByPair(ctx context.Context, from, to string, limit int) ([]domain.RateHistoryRecord, error) {
	query := `SELECT id, from_currency, to_currency, rate, timestamp, source
		FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2
		ORDER BY timestamp DESC`
	args := []any{from, to}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rate history: %w", err)
	}
	defer rows.Close()

	var out []domain.RateHistoryRecord
	for rows.Next() {
		var rec domain.RateHistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.FromCurrency, &rec.ToCurrency, &rec.Rate, &rec.Timestamp, &rec.Source,
		); err != nil {
			return nil, fmt.Errorf("scan rate history row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate history rows: %w", err)
	}
	return out, nil
}
