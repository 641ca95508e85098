package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("orders")

	assert.Equal(t, "orders", cfg.ServiceName)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2.0, cfg.RateLimitRPS)
	assert.Equal(t, 4, cfg.RateLimitBurst)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVICE_NAME", "custom")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("RATE_LIMIT_BURST", "16")

	cfg := Load("orders")

	assert.Equal(t, "custom", cfg.ServiceName)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 16, cfg.RateLimitBurst)
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("RATE_LIMIT_RPS", "not-a-float")

	cfg := Load("orders")

	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 2.0, cfg.RateLimitRPS)
}
