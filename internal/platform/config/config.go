package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	AllowedOrigins []string

	// Upstream rate sources
	CBSLBaseURL string
	CombankURL  string
	SampathURL  string
	PeoplesURL  string

	// Network budgets. Bulk range exports are far slower than daily
	// lookups, so they get their own, larger budget.
	FetchTimeout     time.Duration
	BulkFetchTimeout time.Duration

	// How many trailing days to import when the store is empty.
	BackfillWindowDays int

	// RateLimit is in ulule/limiter formatted notation, e.g. "120-M".
	RateLimit string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ALLOWED_ORIGINS", "")
	viper.SetDefault("CBSL_URL", "https://www.cbsl.lk/rates/exchange-rates/usd-lkr-indicative-rate/daily-indicative-rate")
	viper.SetDefault("COMBANK_URL", "https://www.combank.lk/rates-tariff/exchange-rates.json")
	viper.SetDefault("SAMPATH_URL", "https://www.sampath.lk/api/exchange-rates")
	viper.SetDefault("PEOPLES_URL", "https://www.peoplesbank.lk/exchange-rates/")
	viper.SetDefault("FETCH_TIMEOUT", "15s")
	viper.SetDefault("BULK_FETCH_TIMEOUT", "60s")
	viper.SetDefault("BACKFILL_WINDOW_DAYS", 730)
	viper.SetDefault("RATE_LIMIT", "120-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.AllowedOrigins = splitOrigins(viper.GetString("ALLOWED_ORIGINS"))

	cfg.CBSLBaseURL = viper.GetString("CBSL_URL")
	cfg.CombankURL = viper.GetString("COMBANK_URL")
	cfg.SampathURL = viper.GetString("SAMPATH_URL")
	cfg.PeoplesURL = viper.GetString("PEOPLES_URL")

	cfg.FetchTimeout = parseDurationOr("FETCH_TIMEOUT", 15*time.Second)
	cfg.BulkFetchTimeout = parseDurationOr("BULK_FETCH_TIMEOUT", 60*time.Second)

	cfg.BackfillWindowDays = viper.GetInt("BACKFILL_WINDOW_DAYS")
	if cfg.BackfillWindowDays <= 0 {
		log.Printf("Warning: Invalid BACKFILL_WINDOW_DAYS (%d). Defaulting to 730.\n", cfg.BackfillWindowDays)
		cfg.BackfillWindowDays = 730
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
