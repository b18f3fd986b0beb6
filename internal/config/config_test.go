package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL_TEST", "postgres://localhost/ghg_test")
	t.Setenv("DEFAULT_COUNTRY_CODE", " mx ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres://localhost/ghg_test", cfg.DatabaseURL)
	assert.Equal(t, "MX", cfg.DefaultCountryCode)
	assert.Equal(t, 6*time.Hour, cfg.FactorCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.CalculationLockTTL)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL_PROD", "postgres://prod/ghg")
	t.Setenv("PORT", "9090")
	t.Setenv("FACTOR_CACHE_TTL", "15m")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://prod/ghg", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.FactorCacheTTL)
	assert.False(t, cfg.AutoMigrate)
}
