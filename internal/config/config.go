package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	APIBaseURL      string        `env:"V2X_API_URL"`
	ConfigDir       string        `env:"V2X_CONFIG_DIR"`
	DBPath          string        `env:"V2X_DB_PATH"`
	LogPath         string        `env:"V2X_LOG_PATH"`
	LogLevel        string        `env:"V2X_LOG_LEVEL"`
	RequestTimeout  time.Duration `env:"V2X_REQUEST_TIMEOUT"`
	LogoutTimeout   time.Duration `env:"V2X_LOGOUT_TIMEOUT"`
	DashboardTTL    time.Duration `env:"V2X_DASHBOARD_TTL"`
	RefreshInterval time.Duration `env:"V2X_REFRESH_INTERVAL"`
}

func Default() Config {
	return defaultsIn(filepath.Join(userConfigDir(), "v2xdash"))
}

func defaultsIn(dir string) Config {
	return Config{
		APIBaseURL:      "http://localhost:8080",
		ConfigDir:       dir,
		DBPath:          filepath.Join(dir, "v2xdash.db"),
		LogPath:         filepath.Join(dir, "debug.log"),
		LogLevel:        "info",
		RequestTimeout:  10 * time.Second,
		LogoutTimeout:   5 * time.Second,
		DashboardTTL:    2 * time.Minute,
		RefreshInterval: 30 * time.Second,
	}
}

// Load returns Default overlaid with any V2X_* environment variables.
// Moving V2X_CONFIG_DIR moves the database and log with it unless those
// paths are set explicitly.
func Load() (Config, error) {
	cfg := Default()
	if dir := os.Getenv("V2X_CONFIG_DIR"); dir != "" {
		cfg = defaultsIn(dir)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("V2X_REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.RefreshInterval <= 0 {
		return Config{}, fmt.Errorf("V2X_REFRESH_INTERVAL must be positive, got %s", cfg.RefreshInterval)
	}
	return cfg, nil
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
