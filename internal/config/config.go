package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	// BaseURL is the public origin short links are built against,
	// e.g. https://qr.example.com. Empty means relative URLs.
	BaseURL         string `env:"BASE_URL" envDefault:""`
	AdminAPIKeyHash string `env:"ADMIN_API_KEY_HASH"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	// ResolveRatePerMin is the per-IP ceiling on the public resolve
	// endpoint. 0 disables the guard.
	ResolveRatePerMin int `env:"RESOLVE_RATE_PER_MIN" envDefault:"120"`
	// SettingsCacheTTLSeconds controls how long the admin settings
	// snapshot may be served from the in-process cache. 0 disables caching.
	SettingsCacheTTLSeconds int `env:"SETTINGS_CACHE_TTL_SECONDS" envDefault:"5"`
	// RetentionSchedule is a cron expression for the scan ledger purge.
	RetentionSchedule string `env:"RETENTION_SCHEDULE" envDefault:"17 3 * * *"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SettingsCacheTTL() time.Duration {
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}

func (c *Config) Validate(isProduction bool) error {
	if c.AdminAPIKeyHash != "" {
		if !strings.HasPrefix(c.AdminAPIKeyHash, "$2a$") &&
			!strings.HasPrefix(c.AdminAPIKeyHash, "$2b$") &&
			!strings.HasPrefix(c.AdminAPIKeyHash, "$2y$") {
			return fmt.Errorf("ADMIN_API_KEY_HASH must be a bcrypt hash (generate with: go run scripts/hash-key.go <key>)")
		}
	}

	if isProduction {
		if c.AdminAPIKeyHash == "" {
			return fmt.Errorf("ADMIN_API_KEY_HASH is required in production")
		}
		if c.BaseURL == "" {
			log.Warn().Msg("BASE_URL is empty in production: short links will be relative")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
