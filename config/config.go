package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
	File   string `mapstructure:"file"`   // optional JSON action log, appended
}

// Backend names accepted by the storage.*_backend keys.
const (
	BackendJSONFile = "jsonfile"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	DataDir         string `mapstructure:"data_dir"`
	AccountsBackend string `mapstructure:"accounts_backend"` // users + portfolios: jsonfile | postgres
	RatesBackend    string `mapstructure:"rates_backend"`    // jsonfile | redis
	HistoryBackend  string `mapstructure:"history_backend"`  // jsonfile | postgres
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type TradingConfig struct {
	BaseCurrency string        `mapstructure:"base_currency"`
	RatesTTL     time.Duration `mapstructure:"rates_ttl"`
}

type SourcesConfig struct {
	CoinGecko    CoinGeckoConfig    `mapstructure:"coingecko"`
	ExchangeRate ExchangeRateConfig `mapstructure:"exchangerate"`
}

type CoinGeckoConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	URL               string            `mapstructure:"url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	CoinIDs           map[string]string `mapstructure:"coin_ids"` // currency code -> CoinGecko id
}

// Coins returns the code -> id mapping with upper-cased codes.
// Viper lower-cases map keys read from files and env.
func (c CoinGeckoConfig) Coins() map[string]string {
	out := make(map[string]string, len(c.CoinIDs))
	for code, id := range c.CoinIDs {
		out[strings.ToUpper(code)] = id
	}
	return out
}

type ExchangeRateConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	FiatCurrencies    []string      `mapstructure:"fiat_currencies"`
}

type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // robfig/cron spec, e.g. "@every 5m"
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: VTH_ (ValutaTrade Hub).
// Nested keys use underscore: VTH_TRADING_BASE_CURRENCY, VTH_SOURCES_EXCHANGERATE_API_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.accounts_backend", BackendJSONFile)
	v.SetDefault("storage.rates_backend", BackendJSONFile)
	v.SetDefault("storage.history_backend", BackendJSONFile)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "valutatrade")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "valutatrade-hub")
	v.SetDefault("trading.base_currency", "USD")
	v.SetDefault("trading.rates_ttl", "300s")
	v.SetDefault("sources.coingecko.enabled", true)
	v.SetDefault("sources.coingecko.url", "https://api.coingecko.com/api/v3/simple/price")
	v.SetDefault("sources.coingecko.timeout", "10s")
	v.SetDefault("sources.coingecko.requests_per_minute", 30)
	v.SetDefault("sources.coingecko.coin_ids", map[string]string{
		"BTC": "bitcoin",
		"ETH": "ethereum",
		"SOL": "solana",
	})
	v.SetDefault("sources.exchangerate.enabled", true)
	v.SetDefault("sources.exchangerate.url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("sources.exchangerate.api_key", "")
	v.SetDefault("sources.exchangerate.timeout", "10s")
	v.SetDefault("sources.exchangerate.requests_per_minute", 30)
	v.SetDefault("sources.exchangerate.fiat_currencies", []string{"EUR", "GBP", "RUB"})
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "@every 5m")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: VTH_TRADING_RATES_TTL -> trading.rates_ttl
	v.SetEnvPrefix("VTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Trading.BaseCurrency = strings.ToUpper(cfg.Trading.BaseCurrency)
	for i, code := range cfg.Sources.ExchangeRate.FiatCurrencies {
		cfg.Sources.ExchangeRate.FiatCurrencies[i] = strings.ToUpper(strings.TrimSpace(code))
	}

	return &cfg, nil
}
