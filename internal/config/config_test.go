package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("SettingsCacheTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SettingsCacheTTLSeconds: 5}
		assert.Equal(t, 5*time.Second, cfg.SettingsCacheTTL())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("REDIS_URL", "redis://localhost:6379")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 120, cfg.ResolveRatePerMin)
		assert.Equal(t, 5, cfg.SettingsCacheTTLSeconds)
		assert.Equal(t, "17 3 * * *", cfg.RetentionSchedule)
	})

	t.Run("respects explicit values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/test")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("PORT", "9090")
		t.Setenv("RESOLVE_RATE_PER_MIN", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 0, cfg.ResolveRatePerMin)
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts bcrypt admin key hash", func(t *testing.T) {
		cfg := &Config{AdminAPIKeyHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects plaintext admin key", func(t *testing.T) {
		cfg := &Config{AdminAPIKeyHash: "letmein"}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("requires admin key hash in production", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.Validate(true))
	})
}
