package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/metrics"
	"valutatrade-hub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradeServiceImpl implements ports.TradeService.
//
// Each trade loads the portfolio, mutates a clone and saves the clone once, so
// a trade that fails before the save leaves the stored portfolio unchanged.
// Trades of one user are serialized so concurrent requests cannot lose an update.
// Selling only debits the sold wallet; the base currency is not credited.
type TradeServiceImpl struct {
	registry     ports.CurrencyRegistry
	portfolios   ports.PortfolioRepository
	rates        ports.RateService
	baseCurrency string
	metrics      *metrics.Recorder
	log          zerolog.Logger
	now          func() time.Time
	userLocks    sync.Map // uuid.UUID -> *sync.Mutex
}

// NewTradeService creates a new TradeServiceImpl. rec may be nil.
func NewTradeService(
	registry ports.CurrencyRegistry,
	portfolios ports.PortfolioRepository,
	rates ports.RateService,
	baseCurrency string,
	rec *metrics.Recorder,
	log zerolog.Logger,
) *TradeServiceImpl {
	return &TradeServiceImpl{
		registry:     registry,
		portfolios:   portfolios,
		rates:        rates,
		baseCurrency: baseCurrency,
		metrics:      rec,
		log:          log,
		now:          time.Now,
	}
}

// Buy credits req.Amount of req.Currency and debits its cost from the base wallet.
// Buying the base currency itself is a plain deposit.
func (s *TradeServiceImpl) Buy(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	report, err := s.buy(ctx, req)
	s.metrics.ObserveTrade(string(domain.TradeSideBuy), err)
	return report, err
}

func (s *TradeServiceImpl) buy(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	defer s.lockUser(ctx)()

	session, cur, portfolio, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	report := &domain.SettlementReport{
		Side:         domain.TradeSideBuy,
		Currency:     cur.Code,
		Amount:       req.Amount,
		BaseCurrency: s.baseCurrency,
		Cost:         decimal.Zero,
	}

	if cur.Code != s.baseCurrency {
		// Resolve rate
		rate, err := s.rates.PairRate(ctx, cur.Code, s.baseCurrency)
		if err != nil {
			return nil, err
		}
		cost := req.Amount.Mul(decimal.NewFromFloat(rate))
		report.Rate = rate
		report.Cost = cost

		// Debit base wallet; a missing wallet holds nothing
		baseWallet, ok := portfolio.Wallet(s.baseCurrency)
		if !ok {
			return nil, apperror.ErrInsufficientFunds(s.baseCurrency, decimal.Zero, cost)
		}
		before := baseWallet.Balance()
		if err := baseWallet.Withdraw(cost); err != nil {
			return nil, err
		}
		report.Changes = append(report.Changes, domain.BalanceChange{
			Currency: s.baseCurrency, Before: before, After: baseWallet.Balance(),
		})
	}

	// Credit target wallet
	target := portfolio.EnsureWallet(cur.Code)
	before := target.Balance()
	if err := target.Deposit(req.Amount); err != nil {
		return nil, err
	}
	report.Changes = append(report.Changes, domain.BalanceChange{
		Currency: cur.Code, Before: before, After: target.Balance(),
	})

	return s.persist(ctx, session, portfolio, report)
}

// Sell debits req.Amount from the req.Currency wallet, which must exist.
func (s *TradeServiceImpl) Sell(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	report, err := s.sell(ctx, req)
	s.metrics.ObserveTrade(string(domain.TradeSideSell), err)
	return report, err
}

func (s *TradeServiceImpl) sell(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	defer s.lockUser(ctx)()

	session, cur, portfolio, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	wallet, ok := portfolio.Wallet(cur.Code)
	if !ok {
		return nil, apperror.ErrWalletNotFound(cur.Code)
	}
	before := wallet.Balance()
	if err := wallet.Withdraw(req.Amount); err != nil {
		return nil, err
	}

	report := &domain.SettlementReport{
		Side:         domain.TradeSideSell,
		Currency:     cur.Code,
		Amount:       req.Amount,
		BaseCurrency: s.baseCurrency,
		Cost:         decimal.Zero,
		Changes: []domain.BalanceChange{
			{Currency: cur.Code, Before: before, After: wallet.Balance()},
		},
	}

	return s.persist(ctx, session, portfolio, report)
}

// lockUser holds the session user's trade lock until the returned func is called.
// Without a session there is nothing to lock; prepare reports the error.
func (s *TradeServiceImpl) lockUser(ctx context.Context) func() {
	session, err := SessionFrom(ctx)
	if err != nil {
		return func() {}
	}
	v, _ := s.userLocks.LoadOrStore(session.UserID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// prepare validates the request and returns a working copy of the session user's portfolio.
func (s *TradeServiceImpl) prepare(ctx context.Context, req ports.TradeRequest) (domain.Session, domain.Currency, *domain.Portfolio, error) {
	if !req.Amount.IsPositive() {
		return domain.Session{}, domain.Currency{}, nil, apperror.ErrInvalidAmount()
	}

	session, err := SessionFrom(ctx)
	if err != nil {
		return domain.Session{}, domain.Currency{}, nil, err
	}

	cur, err := s.registry.Get(req.Currency)
	if err != nil {
		return domain.Session{}, domain.Currency{}, nil, err
	}

	portfolio, err := loadPortfolio(ctx, s.portfolios, session.UserID)
	if err != nil {
		return domain.Session{}, domain.Currency{}, nil, err
	}

	return session, cur, portfolio.Clone(), nil
}

func (s *TradeServiceImpl) persist(ctx context.Context, session domain.Session, portfolio *domain.Portfolio, report *domain.SettlementReport) (*domain.SettlementReport, error) {
	if err := s.portfolios.Save(ctx, portfolio); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save portfolio: %w", err))
	}
	report.SettledAt = s.now().UTC()

	s.log.Info().
		Str("user", session.Username).
		Str("side", string(report.Side)).
		Str("currency", report.Currency).
		Str("amount", report.Amount.String()).
		Str("cost", report.Cost.String()).
		Msg("trade settled successfully")

	return report, nil
}

// loadPortfolio returns the stored portfolio or an empty one for userID.
func loadPortfolio(ctx context.Context, repo ports.PortfolioRepository, userID uuid.UUID) (*domain.Portfolio, error) {
	portfolio, err := repo.Get(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load portfolio: %w", err))
	}
	if portfolio == nil {
		return domain.NewPortfolio(userID), nil
	}
	return portfolio, nil
}
