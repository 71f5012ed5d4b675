package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"valutatrade-hub/config"
	"valutatrade-hub/internal/adapter/http/handler"
	"valutatrade-hub/internal/adapter/ratesource"
	"valutatrade-hub/internal/adapter/storage/jsonfile"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/metrics"
	"valutatrade-hub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (a *apiClient) do(method, path string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w.Code, resp
}

func fakeSources(t *testing.T) config.SourcesConfig {
	t.Helper()
	coingecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":60000},"ethereum":{"usd":3000}}`))
	}))
	t.Cleanup(coingecko.Close)

	exchange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-key/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","base_code":"USD","conversion_rates":{"USD":1,"EUR":0.8}}`))
	}))
	t.Cleanup(exchange.Close)

	return config.SourcesConfig{
		CoinGecko: config.CoinGeckoConfig{
			Enabled: true,
			URL:     coingecko.URL,
			Timeout: 2 * time.Second,
			CoinIDs: map[string]string{"BTC": "bitcoin", "ETH": "ethereum"},
		},
		ExchangeRate: config.ExchangeRateConfig{
			Enabled:        true,
			URL:            exchange.URL,
			APIKey:         "test-key",
			Timeout:        2 * time.Second,
			FiatCurrencies: []string{"EUR"},
		},
	}
}

func setupAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	users := jsonfile.NewUserRepo(store)
	portfolios := jsonfile.NewPortfolioRepo(store)
	snapshots := jsonfile.NewSnapshotStore(store)
	history := jsonfile.NewHistoryRepo(store)

	rec := metrics.NewRecorder()
	registry := service.NewCurrencyRegistry(service.DefaultCurrencies()...)
	tokenSvc := service.NewJWTTokenService("router-test-secret", time.Hour, "valutatrade-hub")
	rateSvc := service.NewRateService(registry, snapshots, history, 5*time.Minute)
	sources := ratesource.FromConfig(fakeSources(t), "USD", log)

	router := handler.SetupRouter(handler.RouterDeps{
		AuthSvc: service.NewLoggedAuthService(
			service.NewAuthService(users, portfolios, service.NewArgon2HashService(), tokenSvc), log),
		TradeSvc: service.NewLoggedTradeService(
			service.NewTradeService(registry, portfolios, rateSvc, "USD", rec, log), log),
		RateSvc: rateSvc,
		Updater: service.NewLoggedRatesUpdater(
			service.NewRatesUpdater(sources, snapshots, history, rec, log), log),
		PortfolioSvc:   service.NewPortfolioService(registry, portfolios, snapshots, "USD"),
		Registry:       registry,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{jsonfile.NewHealthCheck(store)},
		Metrics:        rec,
		Logger:         log,
	})
	return &apiClient{t: t, router: router}
}

func decimalField(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected decimal string, got %v", v)
	return decimal.RequireFromString(s)
}

func TestRouter_TradingFlow(t *testing.T) {
	api := setupAPI(t)

	status, _ := api.do(http.MethodGet, "/api/v1/portfolio", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusCreated, status)
	status, resp := api.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AUTH_002", resp["error_code"])

	status, _ = api.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, resp = api.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, status)
	api.token = resp["data"].(map[string]any)["token"].(string)

	// A never-refreshed cache is stale.
	status, resp = api.do(http.MethodGet, "/api/v1/rates/BTC/USD", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "API_001", resp["error_code"])

	status, resp = api.do(http.MethodPost, "/api/v1/rates/update", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), resp["data"].(map[string]any)["total_rates"])

	status, resp = api.do(http.MethodGet, "/api/v1/rates/BTC/USD", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 60000.0, resp["data"].(map[string]any)["rate"])

	status, resp = api.do(http.MethodGet, "/api/v1/rates/EUR/USD", nil)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 1.25, resp["data"].(map[string]any)["rate"], 1e-9)

	status, resp = api.do(http.MethodGet, "/api/v1/rates?top=1", nil)
	require.Equal(t, http.StatusOK, status)
	listing := resp["data"].(map[string]any)
	assert.Equal(t, false, listing["stale"])
	assert.Equal(t, "BTC_USD", listing["rates"].([]any)[0].(map[string]any)["pair"])

	// Base currency buys credit without conversion.
	status, _ = api.do(http.MethodPost, "/api/v1/trades/buy", map[string]string{"currency": "USD", "amount": "1000"})
	require.Equal(t, http.StatusOK, status)

	status, resp = api.do(http.MethodPost, "/api/v1/trades/buy", map[string]string{"currency": "btc", "amount": "0.01"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decimalField(t, resp["data"].(map[string]any)["cost"]).Equal(decimal.NewFromInt(600)))

	status, resp = api.do(http.MethodPost, "/api/v1/trades/buy", map[string]string{"currency": "BTC", "amount": "1"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "TRD_002", resp["error_code"])

	status, _ = api.do(http.MethodPost, "/api/v1/trades/sell", map[string]string{"currency": "BTC", "amount": "0.004"})
	require.Equal(t, http.StatusOK, status)

	status, resp = api.do(http.MethodPost, "/api/v1/trades/sell", map[string]string{"currency": "ETH", "amount": "1"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "TRD_003", resp["error_code"])

	status, resp = api.do(http.MethodGet, "/api/v1/portfolio?base=USD", nil)
	require.Equal(t, http.StatusOK, status)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "alice", data["username"])
	assert.Len(t, data["wallets"], 2)
	// 400 USD + 0.006 BTC * 60000
	assert.True(t, decimalField(t, data["total"]).Equal(decimal.NewFromInt(760)), "total %v", data["total"])

	status, resp = api.do(http.MethodGet, "/api/v1/rates/BTC/USD/history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 1)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	api := setupAPI(t)

	status, resp := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", resp["status"])

	status, resp = api.do(http.MethodGet, "/api/v1/currencies", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], len(service.DefaultCurrencies()))

	status, resp = api.do(http.MethodGet, "/api/v1/rates", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RATE_001", resp["error_code"])

	status, _ = api.do(http.MethodPost, "/api/v1/rates/update", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	api.token = "not-a-jwt"
	status, resp = api.do(http.MethodPost, "/api/v1/trades/buy", map[string]string{"currency": "BTC", "amount": "1"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_003", resp["error_code"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	api := setupAPI(t)
	api.do(http.MethodGet, "/health", nil)

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "valutatrade")
}
