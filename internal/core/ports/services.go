package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"valutatrade-hub/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RateSource is one external price source. FetchRates returns pair key -> rate
// and fails only with an API_001 apperror.
type RateSource interface {
	Name() string
	FetchRates(ctx context.Context) (map[string]float64, error)
}

// HashService handles password hashing (Argon2id). Hash and salt are hex-encoded.
type HashService interface {
	Hash(password string) (hash string, salt string, err error)
	Verify(password, salt, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(session domain.Session) (string, time.Time, error)
	Validate(tokenString string) (*domain.Session, error)
}

// CurrencyRegistry is the static lookup of known currencies.
type CurrencyRegistry interface {
	Get(code string) (domain.Currency, error)
	List() []domain.Currency
}

// --- Service Ports (Business Logic) ---

// AuthService defines registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Username string
	Password string
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	Session   domain.Session
}

// TradeService settles buy and sell operations for the session user.
type TradeService interface {
	Buy(ctx context.Context, req TradeRequest) (*domain.SettlementReport, error)
	Sell(ctx context.Context, req TradeRequest) (*domain.SettlementReport, error)
}

// TradeRequest holds a validated trade order.
type TradeRequest struct {
	Currency string
	Amount   decimal.Decimal
}

// RateService answers rate queries from the cached snapshot.
type RateService interface {
	GetRate(ctx context.Context, from, to string) (*RateQuote, error)
	PairRate(ctx context.Context, from, to string) (float64, error)
	ListRates(ctx context.Context, filter RateFilter) (*RateListing, error)
	History(ctx context.Context, from, to string, limit int) ([]domain.RateHistoryRecord, error)
}

// RateQuote is a resolved from->to rate.
type RateQuote struct {
	From        string
	To          string
	Rate        float64
	ReverseRate float64
	UpdatedAt   time.Time
	Source      string
}

// RateFilter narrows show-rates output. Top <= 0 means all pairs.
type RateFilter struct {
	Currency string
	Top      int
}

// RateListing is the show-rates result.
type RateListing struct {
	Rates       []RateEntry
	LastRefresh time.Time
	Stale       bool
}

// RateEntry is one stored pair.
type RateEntry struct {
	Pair      string
	Rate      float64
	UpdatedAt time.Time
	Source    string
}

// RatesUpdater refreshes the snapshot from the registered sources.
type RatesUpdater interface {
	// RunUpdate fetches from every source, or only the one named by source.
	RunUpdate(ctx context.Context, source string) (*UpdateReport, error)
}

// UpdateReport summarises one update run. Errors holds one message per failed source.
type UpdateReport struct {
	Results     []domain.UpdateResult
	Errors      []string
	TotalRates  int
	LastRefresh time.Time
}

// PortfolioService renders the session user's holdings.
type PortfolioService interface {
	Show(ctx context.Context, base string) (*PortfolioView, error)
}

// PortfolioView is the valued portfolio.
type PortfolioView struct {
	Username     string
	BaseCurrency string
	Rows         []PortfolioRow
	Total        decimal.Decimal
}

// PortfolioRow is one wallet valued in the base currency. Priced is false when
// no rate to the base currency is cached; Value is zero then.
type PortfolioRow struct {
	Currency string
	Balance  decimal.Decimal
	Value    decimal.Decimal
	Priced   bool
}
