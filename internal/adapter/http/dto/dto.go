package dto

import (
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=4,max=128" sanitize:"-"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// UserResponse is the response body for a successful registration.
type UserResponse struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	RegistrationDate time.Time `json:"registration_date"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	Token    string `json:"token"`
	Expiry   int64  `json:"expiry"` // Unix timestamp
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// TradeRequest is the request body for buy and sell. Amount accepts a JSON number or a decimal string.
type TradeRequest struct {
	Currency string          `json:"currency" binding:"required,currency_code"`
	Amount   decimal.Decimal `json:"amount"`
}

// UpdateRatesRequest is the optional request body for a rates refresh.
type UpdateRatesRequest struct {
	Source string `json:"source" binding:"omitempty,max=50,safe_id"`
}

// UpdateRatesResponse reports one update run.
type UpdateRatesResponse struct {
	Sources     []SourceResult `json:"sources"`
	Errors      []string       `json:"errors"`
	TotalRates  int            `json:"total_rates"`
	LastRefresh *time.Time     `json:"last_refresh,omitempty"`
}

// SourceResult is one source's contribution to an update run.
type SourceResult struct {
	Source     string `json:"source"`
	RatesCount int    `json:"rates_count"`
	DurationMS int64  `json:"duration_ms"`
}

// RateResponse is a single from->to quote.
type RateResponse struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Rate        float64   `json:"rate"`
	ReverseRate float64   `json:"reverse_rate"`
	UpdatedAt   time.Time `json:"updated_at"`
	Source      string    `json:"source,omitempty"`
}

// RateListResponse is the show-rates listing.
type RateListResponse struct {
	Rates       []RateEntry `json:"rates"`
	LastRefresh time.Time   `json:"last_refresh"`
	Stale       bool        `json:"stale"`
}

// RateEntry is one cached pair.
type RateEntry struct {
	Pair      string    `json:"pair"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// PortfolioResponse is the valued portfolio.
type PortfolioResponse struct {
	Username     string          `json:"username"`
	BaseCurrency string          `json:"base_currency"`
	Wallets      []WalletRow     `json:"wallets"`
	Total        decimal.Decimal `json:"total"`
}

// WalletRow is one wallet valued in the base currency.
type WalletRow struct {
	Currency string           `json:"currency"`
	Balance  decimal.Decimal  `json:"balance"`
	Value    *decimal.Decimal `json:"value"` // null when no rate is cached
}

// ---- Mappers ----

func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:           u.ID.String(),
		Username:         u.Username,
		RegistrationDate: u.RegistrationDate,
	}
}

func ToLoginResponse(r *ports.LoginResponse) LoginResponse {
	return LoginResponse{
		Token:    r.Token,
		Expiry:   r.ExpiresAt.Unix(),
		UserID:   r.Session.UserID.String(),
		Username: r.Session.Username,
	}
}

func ToUpdateRatesResponse(r *ports.UpdateReport) UpdateRatesResponse {
	resp := UpdateRatesResponse{
		Sources:    make([]SourceResult, 0, len(r.Results)),
		Errors:     r.Errors,
		TotalRates: r.TotalRates,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for _, res := range r.Results {
		resp.Sources = append(resp.Sources, SourceResult{
			Source:     res.SourceName,
			RatesCount: res.RatesCount,
			DurationMS: res.DurationMS(),
		})
	}
	if !r.LastRefresh.IsZero() {
		at := r.LastRefresh
		resp.LastRefresh = &at
	}
	return resp
}

func ToRateResponse(q *ports.RateQuote) RateResponse {
	return RateResponse{
		From:        q.From,
		To:          q.To,
		Rate:        q.Rate,
		ReverseRate: q.ReverseRate,
		UpdatedAt:   q.UpdatedAt,
		Source:      q.Source,
	}
}

func ToRateListResponse(l *ports.RateListing) RateListResponse {
	resp := RateListResponse{
		Rates:       make([]RateEntry, 0, len(l.Rates)),
		LastRefresh: l.LastRefresh,
		Stale:       l.Stale,
	}
	for _, e := range l.Rates {
		resp.Rates = append(resp.Rates, RateEntry{Pair: e.Pair, Rate: e.Rate, UpdatedAt: e.UpdatedAt, Source: e.Source})
	}
	return resp
}

func ToPortfolioResponse(v *ports.PortfolioView) PortfolioResponse {
	resp := PortfolioResponse{
		Username:     v.Username,
		BaseCurrency: v.BaseCurrency,
		Wallets:      make([]WalletRow, 0, len(v.Rows)),
		Total:        v.Total,
	}
	for _, row := range v.Rows {
		w := WalletRow{Currency: row.Currency, Balance: row.Balance}
		if row.Priced {
			value := row.Value
			w.Value = &value
		}
		resp.Wallets = append(resp.Wallets, w)
	}
	return resp
}

// CurrencyResponse is a registry entry plus its one-line description.
type CurrencyResponse struct {
	domain.Currency
	Display string `json:"display"`
}

func ToCurrencyResponse(c domain.Currency) CurrencyResponse {
	return CurrencyResponse{Currency: c, Display: c.DisplayInfo()}
}
