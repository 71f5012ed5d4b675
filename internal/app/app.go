// Package app assembles the storage backends, rate sources and services
// shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"

	"valutatrade-hub/config"
	httpHandler "valutatrade-hub/internal/adapter/http/handler"
	"valutatrade-hub/internal/adapter/ratesource"
	"valutatrade-hub/internal/adapter/storage/jsonfile"
	pgStorage "valutatrade-hub/internal/adapter/storage/postgres"
	redisStorage "valutatrade-hub/internal/adapter/storage/redis"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/metrics"
	"valutatrade-hub/internal/service"

	"github.com/rs/zerolog"
)

// App holds the wired services. Close releases the backends.
type App struct {
	Config *config.Config
	Log    zerolog.Logger

	Registry     *service.CurrencyRegistry
	TokenSvc     ports.TokenService
	AuthSvc      ports.AuthService
	TradeSvc     ports.TradeService
	RateSvc      ports.RateService
	Updater      ports.RatesUpdater
	PortfolioSvc ports.PortfolioService
	SourceNames  []string

	RateLimitStore ports.RateLimitStore // nil without Redis
	HealthCheckers []ports.HealthChecker
	Metrics        *metrics.Recorder

	closers []func()
}

type stores struct {
	users      ports.UserRepository
	portfolios ports.PortfolioRepository
	snapshots  ports.RateSnapshotStore
	history    ports.RateHistoryRepository
}

// Build connects the configured backends and wires every service.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if cfg.Metrics.Enabled {
		a.Metrics = metrics.NewRecorder()
	}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	base := cfg.Trading.BaseCurrency
	a.Registry = service.NewCurrencyRegistry(service.DefaultCurrencies()...)
	if _, err := a.Registry.Get(base); err != nil {
		a.Close()
		return nil, fmt.Errorf("trading.base_currency: %w", err)
	}

	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	a.TokenSvc = tokenSvc
	a.RateSvc = service.NewRateService(a.Registry, st.snapshots, st.history, cfg.Trading.RatesTTL)
	a.PortfolioSvc = service.NewPortfolioService(a.Registry, st.portfolios, st.snapshots, base)

	authSvc := service.NewAuthService(st.users, st.portfolios, service.NewArgon2HashService(), tokenSvc)
	a.AuthSvc = service.NewLoggedAuthService(authSvc, log)

	tradeSvc := service.NewTradeService(a.Registry, st.portfolios, a.RateSvc, base, a.Metrics, log)
	a.TradeSvc = service.NewLoggedTradeService(tradeSvc, log)

	sources := ratesource.FromConfig(cfg.Sources, base, log)
	updater := service.NewRatesUpdater(sources, st.snapshots, st.history, a.Metrics, log)
	a.SourceNames = updater.SourceNames()
	a.Updater = service.NewLoggedRatesUpdater(updater, log)

	log.Info().
		Str("base_currency", base).
		Strs("sources", a.SourceNames).
		Str("accounts_backend", cfg.Storage.AccountsBackend).
		Str("rates_backend", cfg.Storage.RatesBackend).
		Str("history_backend", cfg.Storage.HistoryBackend).
		Msg("application wired")

	return a, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	cfg := a.Config.Storage
	for key, backend := range map[string]string{
		"accounts_backend": cfg.AccountsBackend,
		"rates_backend":    cfg.RatesBackend,
		"history_backend":  cfg.HistoryBackend,
	} {
		if !validBackend(key, backend) {
			return nil, fmt.Errorf("storage.%s: unsupported backend %q", key, backend)
		}
	}

	st := &stores{}

	// The JSON store backs every component not routed elsewhere.
	fileStore, err := jsonfile.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.HealthCheckers = append(a.HealthCheckers, jsonfile.NewHealthCheck(fileStore))
	st.users = jsonfile.NewUserRepo(fileStore)
	st.portfolios = jsonfile.NewPortfolioRepo(fileStore)
	st.snapshots = jsonfile.NewSnapshotStore(fileStore)
	st.history = jsonfile.NewHistoryRepo(fileStore)

	if a.Config.Database.Enabled || cfg.AccountsBackend == config.BackendPostgres || cfg.HistoryBackend == config.BackendPostgres {
		pool, err := pgStorage.NewPool(ctx, a.Config.Database, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
			return nil, err
		}
		a.HealthCheckers = append(a.HealthCheckers, pgStorage.NewHealthCheck(pool))

		if cfg.AccountsBackend == config.BackendPostgres {
			st.users = pgStorage.NewUserRepo(pool)
			st.portfolios = pgStorage.NewPortfolioRepo(pool)
		}
		if cfg.HistoryBackend == config.BackendPostgres {
			st.history = pgStorage.NewHistoryRepo(pool)
		}
	}

	if a.Config.Redis.Enabled || cfg.RatesBackend == config.BackendRedis {
		rdb, err := redisStorage.NewClient(ctx, a.Config.Redis, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := rdb.Close(); err != nil {
				a.Log.Warn().Err(err).Msg("closing redis client")
			}
		})
		a.HealthCheckers = append(a.HealthCheckers, redisStorage.NewHealthCheck(rdb))
		a.RateLimitStore = redisStorage.NewRateLimitStore(rdb)

		if cfg.RatesBackend == config.BackendRedis {
			st.snapshots = redisStorage.NewSnapshotStore(rdb)
		}
	}

	return st, nil
}

func validBackend(key, backend string) bool {
	switch key {
	case "accounts_backend", "history_backend":
		return backend == config.BackendJSONFile || backend == config.BackendPostgres
	case "rates_backend":
		return backend == config.BackendJSONFile || backend == config.BackendRedis
	}
	return false
}

// RouterDeps returns the handler dependencies for the HTTP server.
func (a *App) RouterDeps() httpHandler.RouterDeps {
	return httpHandler.RouterDeps{
		AuthSvc:        a.AuthSvc,
		TradeSvc:       a.TradeSvc,
		RateSvc:        a.RateSvc,
		Updater:        a.Updater,
		PortfolioSvc:   a.PortfolioSvc,
		Registry:       a.Registry,
		TokenSvc:       a.TokenSvc,
		RateLimitStore: a.RateLimitStore,
		HealthCheckers: a.HealthCheckers,
		Metrics:        a.Metrics,
		MetricsPath:    a.Config.Metrics.Path,
		Logger:         a.Log,
	}
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
