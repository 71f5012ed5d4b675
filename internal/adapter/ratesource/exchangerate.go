package ratesource

import (
	"context"
	"fmt"
	"strings"

	"valutatrade-hub/config"
	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
)

// ExchangeRate fetches fiat rates from ExchangeRate-API (v6).
type ExchangeRate struct {
	http   *httpClient
	url    string
	apiKey string
	base   string
	fiat   []string
}

// NewExchangeRate creates the ExchangeRate-API source.
func NewExchangeRate(cfg config.ExchangeRateConfig, baseCurrency string, log zerolog.Logger) *ExchangeRate {
	fiat := make([]string, 0, len(cfg.FiatCurrencies))
	for _, code := range cfg.FiatCurrencies {
		fiat = append(fiat, strings.ToUpper(code))
	}
	return &ExchangeRate{
		http:   newHTTPClient("ExchangeRate-API", cfg.Timeout, cfg.RequestsPerMinute, log),
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		base:   strings.ToUpper(baseCurrency),
		fiat:   fiat,
	}
}

func (e *ExchangeRate) Name() string { return "ExchangeRate-API" }

// FetchRates returns CODE_BASE for each configured fiat code. The API quotes units of
// CODE per one BASE, so every value is inverted.
func (e *ExchangeRate) FetchRates(ctx context.Context) (map[string]float64, error) {
	if e.apiKey == "" {
		return nil, apperror.ErrAPIRequest("ExchangeRate-API key is not configured")
	}

	body, err := e.http.getJSON(ctx, fmt.Sprintf("%s/%s/latest/%s", e.url, e.apiKey, e.base))
	if err != nil {
		return nil, err
	}
	if result := body.Get("result").String(); result != "success" {
		return nil, apperror.ErrAPIRequest("ExchangeRate-API returned an error: " + body.Get("error-type").String())
	}

	conversion := body.Get("conversion_rates")
	rates := make(map[string]float64, len(e.fiat))
	for _, code := range e.fiat {
		if code == e.base {
			continue
		}
		v, ok := positiveNumber(conversion.Get(code))
		if !ok {
			continue
		}
		rates[domain.PairKey(code, e.base)] = 1 / v
	}
	return rates, nil
}
