package ratesource

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"valutatrade-hub/config"
	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
)

// CoinGecko fetches crypto prices quoted in the base currency.
type CoinGecko struct {
	http  *httpClient
	url   string
	base  string
	coins map[string]string // currency code -> CoinGecko id
}

// NewCoinGecko creates the CoinGecko source.
func NewCoinGecko(cfg config.CoinGeckoConfig, baseCurrency string, log zerolog.Logger) *CoinGecko {
	return &CoinGecko{
		http:  newHTTPClient("CoinGecko", cfg.Timeout, cfg.RequestsPerMinute, log),
		url:   cfg.URL,
		base:  strings.ToUpper(baseCurrency),
		coins: cfg.Coins(),
	}
}

func (c *CoinGecko) Name() string { return "CoinGecko" }

// FetchRates returns CODE_BASE prices for every configured coin the API answered for.
func (c *CoinGecko) FetchRates(ctx context.Context) (map[string]float64, error) {
	codes := make([]string, 0, len(c.coins))
	for code := range c.coins {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	ids := make([]string, 0, len(codes))
	for _, code := range codes {
		ids = append(ids, c.coins[code])
	}
	vs := strings.ToLower(c.base)

	u, err := url.Parse(c.url)
	if err != nil {
		return nil, apperror.ErrAPIRequest("invalid CoinGecko url: " + err.Error())
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vs)
	u.RawQuery = q.Encode()

	body, err := c.http.getJSON(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !body.IsObject() {
		return nil, apperror.ErrAPIRequest("invalid response format from CoinGecko")
	}

	rates := make(map[string]float64, len(codes))
	for _, code := range codes {
		v, ok := positiveNumber(body.Get(c.coins[code]).Get(vs))
		if !ok {
			continue
		}
		rates[domain.PairKey(code, c.base)] = v
	}
	return rates, nil
}
