package domain

import (
	"fmt"
	"regexp"
)

// CurrencyKind distinguishes fiat money from crypto assets.
type CurrencyKind string

const (
	CurrencyKindFiat   CurrencyKind = "FIAT"
	CurrencyKindCrypto CurrencyKind = "CRYPTO"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{2,5}$`)

// IsValidCurrencyCode reports whether code is 2-5 upper-case latin letters.
func IsValidCurrencyCode(code string) bool {
	return currencyCodeRe.MatchString(code)
}

// Currency is an immutable registry entry.
type Currency struct {
	Code           string       `json:"code"`
	Name           string       `json:"name"`
	Kind           CurrencyKind `json:"kind"`
	IssuingCountry string       `json:"issuing_country,omitempty"` // fiat only
	Algorithm      string       `json:"algorithm,omitempty"`       // crypto only
	MarketCap      float64      `json:"market_cap,omitempty"`      // crypto only
}

// DisplayInfo renders the one-line description used by listings.
func (c Currency) DisplayInfo() string {
	if c.Kind == CurrencyKindCrypto {
		return fmt.Sprintf("[CRYPTO] %s — %s (Algo: %s, MCAP: %.2e)", c.Code, c.Name, c.Algorithm, c.MarketCap)
	}
	return fmt.Sprintf("[FIAT] %s — %s (Issuing: %s)", c.Code, c.Name, c.IssuingCountry)
}
