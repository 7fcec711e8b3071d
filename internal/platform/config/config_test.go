package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:        "sqlite::memory:",
		JWTSecret:          "secret",
		TokenTTL:           time.Hour,
		Environment:        "development",
		MaxBodyBytes:       4096,
		MaxUploadBytes:     8192,
		RateLimitPerMinute: 10,
		ReadFanoutLimit:    4,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.JWTSecret = " "
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Environment = "production"
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.RunSeed = false
	assert.Error(t, cfg.Validate(), "sqlite must be refused in production")

	cfg.DatabaseURL = "postgres://localhost/pms"
	assert.NoError(t, cfg.Validate())
}

func TestSQLitePath(t *testing.T) {
	path, ok := Config{DatabaseURL: "sqlite:data/pms.db"}.SQLitePath()
	assert.True(t, ok)
	assert.Equal(t, "data/pms.db", path)

	_, ok = Config{DatabaseURL: "postgres://localhost/pms"}.SQLitePath()
	assert.False(t, ok)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("READ_FANOUT_LIMIT", "3")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("METRICS_ENABLED", "nope")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 3, cfg.ReadFanoutLimit)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.MetricsEnabled, "unparseable bool falls back to default")
}
