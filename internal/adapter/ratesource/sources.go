package ratesource

import (
	"valutatrade-hub/config"
	"valutatrade-hub/internal/core/ports"

	"github.com/rs/zerolog"
)

// FromConfig builds the enabled sources in registration order: CoinGecko, then ExchangeRate-API.
// Later sources win when two supply the same pair.
func FromConfig(cfg config.SourcesConfig, baseCurrency string, log zerolog.Logger) []ports.RateSource {
	var sources []ports.RateSource
	if cfg.CoinGecko.Enabled {
		sources = append(sources, NewCoinGecko(cfg.CoinGecko, baseCurrency, log))
	}
	if cfg.ExchangeRate.Enabled {
		sources = append(sources, NewExchangeRate(cfg.ExchangeRate, baseCurrency, log))
	}
	return sources
}
