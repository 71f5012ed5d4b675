package service

import (
	"context"
	"fmt"
	"strings"

	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"

	"github.com/shopspring/decimal"
)

// PortfolioServiceImpl implements ports.PortfolioService. Valuation reads the
// snapshot as is: it is a display, so stale rates are shown rather than refused.
type PortfolioServiceImpl struct {
	registry    ports.CurrencyRegistry
	portfolios  ports.PortfolioRepository
	snapshots   ports.RateSnapshotStore
	defaultBase string
}

// NewPortfolioService creates a new PortfolioServiceImpl.
func NewPortfolioService(
	registry ports.CurrencyRegistry,
	portfolios ports.PortfolioRepository,
	snapshots ports.RateSnapshotStore,
	defaultBase string,
) *PortfolioServiceImpl {
	return &PortfolioServiceImpl{
		registry:    registry,
		portfolios:  portfolios,
		snapshots:   snapshots,
		defaultBase: defaultBase,
	}
}

// Show values every wallet of the session user in base (the configured base
// currency when empty).
func (s *PortfolioServiceImpl) Show(ctx context.Context, base string) (*ports.PortfolioView, error) {
	session, err := SessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(base) == "" {
		base = s.defaultBase
	}
	baseCur, err := s.registry.Get(base)
	if err != nil {
		return nil, err
	}

	portfolio, err := loadPortfolio(ctx, s.portfolios, session.UserID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.snapshots.Load(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load rate snapshot: %w", err))
	}

	view := &ports.PortfolioView{
		Username:     session.Username,
		BaseCurrency: baseCur.Code,
		Total:        decimal.Zero,
	}
	for _, code := range portfolio.Codes() {
		w, _ := portfolio.Wallet(code)
		row := ports.PortfolioRow{Currency: code, Balance: w.Balance(), Value: decimal.Zero}
		if pr, ok := snapshot.Lookup(code, baseCur.Code); ok {
			row.Value = w.Balance().Mul(decimal.NewFromFloat(pr.Rate))
			row.Priced = true
			view.Total = view.Total.Add(row.Value)
		}
		view.Rows = append(view.Rows, row)
	}

	return view, nil
}
