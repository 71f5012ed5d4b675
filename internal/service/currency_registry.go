package service

import (
	"strings"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"
)

// CurrencyRegistry implements ports.CurrencyRegistry over a fixed, ordered set.
type CurrencyRegistry struct {
	order  []string
	byCode map[string]domain.Currency
}

// NewCurrencyRegistry registers currencies in the given order. Later duplicates
// of a code replace the earlier entry but keep its position.
func NewCurrencyRegistry(currencies ...domain.Currency) *CurrencyRegistry {
	r := &CurrencyRegistry{byCode: make(map[string]domain.Currency, len(currencies))}
	for _, c := range currencies {
		if _, seen := r.byCode[c.Code]; !seen {
			r.order = append(r.order, c.Code)
		}
		r.byCode[c.Code] = c
	}
	return r
}

// DefaultCurrencies is the built-in set served when nothing else is configured.
func DefaultCurrencies() []domain.Currency {
	return []domain.Currency{
		{Code: "USD", Name: "US Dollar", Kind: domain.CurrencyKindFiat, IssuingCountry: "United States"},
		{Code: "EUR", Name: "Euro", Kind: domain.CurrencyKindFiat, IssuingCountry: "Eurozone"},
		{Code: "GBP", Name: "British Pound", Kind: domain.CurrencyKindFiat, IssuingCountry: "United Kingdom"},
		{Code: "RUB", Name: "Russian Ruble", Kind: domain.CurrencyKindFiat, IssuingCountry: "Russia"},
		{Code: "BTC", Name: "Bitcoin", Kind: domain.CurrencyKindCrypto, Algorithm: "SHA-256", MarketCap: 1.12e12},
		{Code: "ETH", Name: "Ethereum", Kind: domain.CurrencyKindCrypto, Algorithm: "Ethash", MarketCap: 4.5e11},
		{Code: "SOL", Name: "Solana", Kind: domain.CurrencyKindCrypto, Algorithm: "Proof of History", MarketCap: 8.1e10},
	}
}

// Get returns the currency for code. Lower-case input is accepted; anything
// that is not 2-5 letters or not registered fails with CurrencyNotFound.
func (r *CurrencyRegistry) Get(code string) (domain.Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !domain.IsValidCurrencyCode(normalized) {
		return domain.Currency{}, apperror.ErrCurrencyNotFound(code)
	}
	c, ok := r.byCode[normalized]
	if !ok {
		return domain.Currency{}, apperror.ErrCurrencyNotFound(normalized)
	}
	return c, nil
}

// List returns the currencies in registration order.
func (r *CurrencyRegistry) List() []domain.Currency {
	out := make([]domain.Currency, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}
