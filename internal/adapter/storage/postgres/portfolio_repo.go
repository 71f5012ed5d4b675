package postgres

import (
	"context"
	"fmt"
	"time"

	"valutatrade-hub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PortfolioRepo implements ports.PortfolioRepository on the wallets table.
// Balances travel as text so NUMERIC precision survives the round trip.
type PortfolioRepo struct {
	pool Pool
	tx   *Transactor
	now  func() time.Time
}

// NewPortfolioRepo creates a new PortfolioRepo.
func NewPortfolioRepo(pool Pool) *PortfolioRepo {
	return &PortfolioRepo{pool: pool, tx: NewTransactor(pool), now: time.Now}
}

// Get loads every wallet of the user. No wallets reads as (nil, nil).
func (r *PortfolioRepo) Get(ctx context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	query := `SELECT currency_code, balance::text FROM wallets WHERE user_id = $1 ORDER BY currency_code`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var p *domain.Portfolio
	for rows.Next() {
		var code, raw string
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, fmt.Errorf("scan wallet row: %w", err)
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("wallet %s balance %q: %w", code, raw, err)
		}
		w, err := domain.NewWallet(code, balance)
		if err != nil {
			return nil, fmt.Errorf("wallet %s: %w", code, err)
		}
		if p == nil {
			p = domain.NewPortfolio(userID)
		}
		p.PutWallet(w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet rows: %w", err)
	}
	return p, nil
}

// Save upserts every wallet in one transaction, so a settlement lands whole or not at all.
func (r *PortfolioRepo) Save(ctx context.Context, portfolio *domain.Portfolio) error {
	query := `INSERT INTO wallets (user_id, currency_code, balance, updated_at)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (user_id, currency_code)
		DO UPDATE SET balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

	now := r.now().UTC()
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, code := range portfolio.Codes() {
			w, _ := portfolio.Wallet(code)
			if _, err := tx.Exec(ctx, query, portfolio.UserID, code, w.Balance().String(), now); err != nil {
				return fmt.Errorf("upsert wallet %s: %w", code, err)
			}
		}
		return nil
	})
}
