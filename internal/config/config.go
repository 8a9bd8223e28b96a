package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	defaultAPIURL        = "http://localhost:8000"
	defaultRedirectDelay = 800 * time.Millisecond
	defaultLogLevel      = "info"
)

type Config struct {
	APIURL        string
	SessionFile   string
	RedirectDelay time.Duration
	LogLevel      string
	MetricsFile   string
}

func Load() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		APIURL:        getEnvOrDefault("INVENTARIO_API_URL", defaultAPIURL),
		SessionFile:   os.Getenv("INVENTARIO_SESSION_FILE"),
		RedirectDelay: defaultRedirectDelay,
		LogLevel:      getEnvOrDefault("INVENTARIO_LOG_LEVEL", defaultLogLevel),
		MetricsFile:   os.Getenv("INVENTARIO_METRICS_FILE"),
	}

	if raw := os.Getenv("INVENTARIO_REDIRECT_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid INVENTARIO_REDIRECT_DELAY %q", raw)
		}
		if d < 0 {
			return nil, errors.Errorf("INVENTARIO_REDIRECT_DELAY must not be negative, got %s", d)
		}
		cfg.RedirectDelay = d
	}

	if cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolve home directory for session file")
		}
		cfg.SessionFile = filepath.Join(home, ".inventario", "storage.json")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
