package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

// Defaults applied when the environment leaves a setting empty.
const (
	DefaultLedgerFile        = "data/inventory.txt"
	DefaultLowStockThreshold = 10
	DefaultExpiryWindowDays  = 30
)

// Config carries environment-driven settings for the API process.
type Config struct {
	Port              string
	PostgresDSN       string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	LedgerFile        string
	LowStockThreshold int
	ExpiryWindowDays  int
}

// ExpiryWindow is the look-ahead used by the expiring-batches query.
func (c Config) ExpiryWindow() time.Duration {
	return time.Duration(c.ExpiryWindowDays) * 24 * time.Hour
}

// LoadConfig reads an optional .env file, then environment variables, applies defaults,
// and validates basic constraints. Variables already set in the environment win over .env.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		LedgerFile:        envDefault("LEDGER_FILE", DefaultLedgerFile),
	}
	var err error
	if cfg.LowStockThreshold, err = positiveInt("LOW_STOCK_THRESHOLD", DefaultLowStockThreshold); err != nil {
		return Config{}, err
	}
	if cfg.ExpiryWindowDays, err = positiveInt("EXPIRY_WINDOW_DAYS", DefaultExpiryWindowDays); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return value, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
