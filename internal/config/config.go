package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the tracker.
type Config struct {
	DatabaseURL          string        `validate:"required"`
	RetentionDays        int           `validate:"gte=0"`
	CacheTTL             time.Duration `validate:"gt=0"`
	CacheMaxEntries      int           `validate:"gt=0"`
	CacheSweepInterval   time.Duration `validate:"gt=0"`
	RolloverTime         string        `validate:"datetime=15:04"`
	RetentionTime        string        `validate:"datetime=15:04"`
	SummaryTime          string        `validate:"datetime=15:04"`
	LogLevel             string        `validate:"oneof=debug info warn error"`
	LogFormat            string        `validate:"oneof=text json"`
	MetricsAddr          string
	TelegramToken        string
	TelegramChatID       int64 `validate:"required_with=TelegramToken"`
	CategoryDefaultsFile string
}

// Load reads configuration from environment variables (and an optional .env
// file) with sane defaults.
func Load() (Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RetentionDays:        envInt("RETENTION_DAYS", 90),
		CacheTTL:             envSeconds("CACHE_TTL_SECONDS", 60*time.Second),
		CacheMaxEntries:      envInt("CACHE_MAX_ENTRIES", 100),
		CacheSweepInterval:   envSeconds("CACHE_SWEEP_SECONDS", 300*time.Second),
		RolloverTime:         envString("ROLLOVER_TIME", "00:00"),
		RetentionTime:        envString("RETENTION_TIME", "03:30"),
		SummaryTime:          envString("SUMMARY_TIME", "21:00"),
		LogLevel:             strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(envString("LOG_FORMAT", "text")),
		MetricsAddr:          strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		TelegramToken:        strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID:       int64(envInt("TELEGRAM_CHAT_ID", 0)),
		CategoryDefaultsFile: strings.TrimSpace(os.Getenv("CATEGORY_DEFAULTS_FILE")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "accountability.db"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envSeconds(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw + "s")
	if err != nil || d <= 0 {
		return def
	}
	return d
}
