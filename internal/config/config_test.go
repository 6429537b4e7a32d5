package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "no-reply@elixir.com", cfg.DefaultFromEmail)
	assert.Equal(t, "default_super_secret_key", cfg.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.ReportSchedulerInterval)
	assert.Contains(t, cfg.AllowedOrigins(), "http://localhost:5178")
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("GIN_MODE", "release")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "db", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", cfg.DSN())

	cfg = &Config{DBDriver: "sqlite", DBPath: "test.db"}
	assert.Equal(t, "test.db", cfg.DSN())
}

func TestShippingFallsBackOnGarbage(t *testing.T) {
	cfg := &Config{ShippingCost: "abc", FreeShippingFrom: "1000"}
	cost, free := cfg.Shipping()
	assert.True(t, cost.Equal(decimal.NewFromInt(3990)))
	assert.True(t, free.Equal(decimal.NewFromInt(1000)))
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{TimeZone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}
