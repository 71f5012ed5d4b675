package handler

import (
	"valutatrade-hub/internal/adapter/http/middleware"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	TradeSvc       ports.TradeService
	RateSvc        ports.RateService
	Updater        ports.RatesUpdater
	PortfolioSvc   ports.PortfolioService
	Registry       ports.CurrencyRegistry
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Metrics        *metrics.Recorder // nil = no /metrics endpoint
	MetricsPath    string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	currencyHandler := NewCurrencyHandler(deps.Registry)
	currencies := v1.Group("/currencies", rl("reads"))
	{
		currencies.GET("", currencyHandler.List)
		currencies.GET("/:code", currencyHandler.Get)
	}

	rateHandler := NewRateHandler(deps.RateSvc, deps.Updater)
	rates := v1.Group("/rates")
	{
		rates.GET("", rl("reads"), rateHandler.ListRates)
		rates.GET("/:from/:to", rl("reads"), rateHandler.GetRate)
		rates.GET("/:from/:to/history", rl("reads"), rateHandler.History)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	v1.POST("/rates/update", jwtAuth, rl("rates_update"), rateHandler.UpdateRates)

	tradeHandler := NewTradeHandler(deps.TradeSvc)
	trades := v1.Group("/trades", jwtAuth)
	{
		trades.POST("/buy", rl("trades"), tradeHandler.Buy)
		trades.POST("/sell", rl("trades"), tradeHandler.Sell)
	}

	portfolioHandler := NewPortfolioHandler(deps.PortfolioSvc)
	v1.GET("/portfolio", jwtAuth, rl("reads"), portfolioHandler.Show)

	return r
}
