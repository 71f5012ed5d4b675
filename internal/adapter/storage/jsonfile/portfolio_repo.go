package jsonfile

import (
	"context"
	"fmt"

	"valutatrade-hub/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletRecord struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}

type portfolioRecord struct {
	UserID  uuid.UUID               `json:"user_id"`
	Wallets map[string]walletRecord `json:"wallets"`
}

// PortfolioRepo implements ports.PortfolioRepository on portfolios.json.
// Balances are stored as decimal strings.
type PortfolioRepo struct {
	store *Store
}

// NewPortfolioRepo creates a new PortfolioRepo.
func NewPortfolioRepo(store *Store) *PortfolioRepo {
	return &PortfolioRepo{store: store}
}

func (r *PortfolioRepo) load() ([]portfolioRecord, error) {
	var records []portfolioRecord
	if _, err := r.store.read(portfoliosFile, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns the user's portfolio or (nil, nil).
func (r *PortfolioRepo) Get(_ context.Context, userID uuid.UUID) (*domain.Portfolio, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.UserID != userID {
			continue
		}
		p := domain.NewPortfolio(userID)
		for code, wr := range rec.Wallets {
			w, err := domain.NewWallet(code, wr.Balance)
			if err != nil {
				return nil, fmt.Errorf("portfolio %s wallet %s: %w", userID, code, err)
			}
			p.PutWallet(w)
		}
		return p, nil
	}
	return nil, nil
}

// Save replaces the user's portfolio in one file write.
func (r *PortfolioRepo) Save(_ context.Context, portfolio *domain.Portfolio) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	rec := portfolioRecord{UserID: portfolio.UserID, Wallets: make(map[string]walletRecord)}
	for _, code := range portfolio.Codes() {
		w, _ := portfolio.Wallet(code)
		rec.Wallets[code] = walletRecord{CurrencyCode: code, Balance: w.Balance()}
	}

	replaced := false
	for i := range records {
		if records[i].UserID == portfolio.UserID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return r.store.write(portfoliosFile, records)
}
