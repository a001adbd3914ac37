package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Logger   Logger   `mapstructure:"logger"`
	Database Database `mapstructure:"database"`
	Gemini   Gemini   `mapstructure:"gemini"`
	Retry    Retry    `mapstructure:"retry"`
	Market   Market   `mapstructure:"market"`
	Search   Search   `mapstructure:"search"`
	Redis    Redis    `mapstructure:"redis"`
	Chat     Chat     `mapstructure:"chat"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the database.
// A DSN starting with postgres:// selects PostgreSQL, anything else SQLite.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Gemini holds the configuration for the generative model API.
type Gemini struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Retry holds the backoff policy for rate-limited remote calls.
type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxJitter   time.Duration `mapstructure:"max_jitter"`
}

// Market holds provider endpoints for the market snapshot.
type Market struct {
	CoinIDs        []string          `mapstructure:"coin_ids"`
	BinanceSymbols map[string]string `mapstructure:"binance_symbols"`
	CoinGeckoURL   string            `mapstructure:"coingecko_url"`
	BinanceURL     string            `mapstructure:"binance_url"`
	MetalPair      string            `mapstructure:"metal_pair"`
	SwissquoteURL  string            `mapstructure:"swissquote_url"`
	GoldAPIURL     string            `mapstructure:"gold_api_url"`
	FearGreedURL   string            `mapstructure:"fear_greed_url"`
	NewsURL        string            `mapstructure:"news_url"`
	NewsAPIKey     string            `mapstructure:"news_api_key"`
	NewsQuery      string            `mapstructure:"news_query"`
	NewsLanguage   string            `mapstructure:"news_language"`
	NewsCountry    string            `mapstructure:"news_country"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	RateLimit      float64           `mapstructure:"rate_limit"`
	RateLimitBurst int               `mapstructure:"rate_limit_burst"`
	CacheTTL       time.Duration     `mapstructure:"cache_ttl"`
	LegTimeout     time.Duration     `mapstructure:"leg_timeout"`
}

// Search holds the web search enrichment configuration.
type Search struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Keywords   string        `mapstructure:"keywords"`
	Domains    []string      `mapstructure:"domains"`
	NumResults int           `mapstructure:"num_results"`
	Window     time.Duration `mapstructure:"window"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Redis holds the optional cache backend configuration.
type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Chat holds the assistant conversation settings.
type Chat struct {
	HistoryLimit int `mapstructure:"history_limit"`
	TradeLimit   int `mapstructure:"trade_limit"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("failed to load .env: %w", err)
			return
		}
		err = nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("database.dsn", "journal.db")

	// Secrets have empty defaults so AutomaticEnv can supply them, e.g. GEMINI_API_KEY.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("gemini.timeout", 60*time.Second)
	v.SetDefault("gemini.rate_limit", 5) // requests per second
	v.SetDefault("gemini.rate_limit_burst", 2)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_jitter", time.Second)

	v.SetDefault("market.coin_ids", []string{"bitcoin", "ethereum", "solana"})
	v.SetDefault("market.binance_symbols", map[string]string{
		"bitcoin":  "BTCUSDT",
		"ethereum": "ETHUSDT",
		"solana":   "SOLUSDT",
	})
	v.SetDefault("market.coingecko_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.binance_url", "https://api.binance.com/api/v3")
	v.SetDefault("market.metal_pair", "XAU/USD")
	v.SetDefault("market.swissquote_url", "https://forex-data-feed.swissquote.com/public-quotes")
	v.SetDefault("market.gold_api_url", "https://api.gold-api.com")
	v.SetDefault("market.fear_greed_url", "https://api.alternative.me")
	v.SetDefault("market.news_url", "https://newsdata.io/api/1")
	v.SetDefault("market.news_api_key", "")
	v.SetDefault("market.news_query", "forex OR gold OR bitcoin")
	v.SetDefault("market.news_language", "en")
	v.SetDefault("market.news_country", "us")
	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.rate_limit", 10)
	v.SetDefault("market.rate_limit_burst", 5)
	v.SetDefault("market.cache_ttl", 30*time.Minute)
	v.SetDefault("market.leg_timeout", 30*time.Second)

	v.SetDefault("search.enabled", false)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://api.exa.ai")
	v.SetDefault("search.keywords", "market news analysis")
	v.SetDefault("search.domains", []string{
		"reuters.com", "bloomberg.com", "cnbc.com", "marketwatch.com",
		"coindesk.com", "cointelegraph.com", "fxstreet.com", "investing.com",
	})
	v.SetDefault("search.num_results", 5)
	v.SetDefault("search.window", 24*time.Hour)
	v.SetDefault("search.timeout", 15*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "journal:")

	v.SetDefault("chat.history_limit", 10)
	v.SetDefault("chat.trade_limit", 20)
}
