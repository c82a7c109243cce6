package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	APIKey          string
	CORSAllowOrigin string
	WebhookURL      string
	BotName         string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Market data
	CoinID               string
	VsCurrency           string
	HistoryDays          int
	FetchCacheTTLSeconds int
	RefreshIntervalHours int

	// Backtest defaults (overridable per request)
	DefaultShortWindow    int
	DefaultLongWindow     int
	DefaultInitialBalance float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Secrets
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "BTCBacktest"),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "btc_backtest"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// Market data
		CoinID:               envStr("COIN_ID", "bitcoin"),
		VsCurrency:           envStr("VS_CURRENCY", "usd"),
		HistoryDays:          envInt("HISTORY_DAYS", 365),
		FetchCacheTTLSeconds: envInt("FETCH_CACHE_TTL_SECONDS", 300),
		RefreshIntervalHours: envInt("REFRESH_INTERVAL_HOURS", 12),

		// Backtest defaults
		DefaultShortWindow:    envInt("DEFAULT_SHORT_WINDOW", 10),
		DefaultLongWindow:     envInt("DEFAULT_LONG_WINDOW", 40),
		DefaultInitialBalance: envFloat("DEFAULT_INITIAL_BALANCE", 10000),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DefaultShortWindow <= 0 || c.DefaultLongWindow <= 0 {
		errs = append(errs, "DEFAULT_SHORT_WINDOW and DEFAULT_LONG_WINDOW must be positive")
	}
	if c.DefaultShortWindow >= c.DefaultLongWindow {
		errs = append(errs, "DEFAULT_SHORT_WINDOW must be smaller than DEFAULT_LONG_WINDOW")
	}
	if c.DefaultInitialBalance <= 0 {
		errs = append(errs, "DEFAULT_INITIAL_BALANCE must be positive")
	}
	if c.HistoryDays <= 0 {
		errs = append(errs, "HISTORY_DAYS must be positive")
	}
	if c.HistoryDays < c.DefaultLongWindow {
		errs = append(errs, fmt.Sprintf("HISTORY_DAYS (%d) must cover DEFAULT_LONG_WINDOW (%d)",
			c.HistoryDays, c.DefaultLongWindow))
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set — REST API has no authentication")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set — refresh notifications disabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== BTC SMA Crossover Backtest Configuration ===")
	fmt.Printf("Asset: %s/%s\n", c.CoinID, c.VsCurrency)
	fmt.Printf("History window: %d days\n", c.HistoryDays)
	fmt.Printf("Fetch cache TTL: %ds\n", c.FetchCacheTTLSeconds)
	fmt.Printf("Refresh interval: every %d hours\n", c.RefreshIntervalHours)
	fmt.Println("--------------------------------------")
	fmt.Println("Backtest defaults:")
	fmt.Printf("  Short SMA: %d days\n", c.DefaultShortWindow)
	fmt.Printf("  Long SMA: %d days\n", c.DefaultLongWindow)
	fmt.Printf("  Initial balance: $%.2f\n", c.DefaultInitialBalance)
	fmt.Println("--------------------------------------")
	fmt.Printf("API auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) FetchCacheTTL() time.Duration {
	return time.Duration(c.FetchCacheTTLSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalHours) * time.Hour
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
