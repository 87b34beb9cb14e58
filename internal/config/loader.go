package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. The file path comes from CONFIG_PATH,
// falling back to ./config.yaml; a missing fallback file is not an error.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field rules. Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", DriverMemory, DriverPostgres, c.Database.Driver)
	}
	if c.Cases.StatsWindowDays <= 0 {
		return fmt.Errorf("cases.stats_window_days must be > 0 (got %d)", c.Cases.StatsWindowDays)
	}
	if c.Cases.MaxIDAttempts <= 0 {
		return fmt.Errorf("cases.max_id_attempts must be > 0 (got %d)", c.Cases.MaxIDAttempts)
	}
	if strings.TrimSpace(c.Cases.IDPrefix) == "" {
		return fmt.Errorf("cases.id_prefix must not be empty")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return fmt.Errorf("auth.admin_email and auth.admin_password must be set together")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	return nil
}
