package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerResetTimeout)
	assert.Equal(t, 2, cfg.MinMessageLength)
	assert.Equal(t, 100, cfg.MaxQuantity)
	assert.NotEmpty(t, cfg.OpenRouterModels)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "3")
	t.Setenv("BREAKER_RESET_TIMEOUT", "1m")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("OPENROUTER_MODELS", "a/one, b/two ,")

	cfg := Load()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, time.Minute, cfg.BreakerResetTimeout)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, []string{"a/one", "b/two"}, cfg.OpenRouterModels)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "lots")
	t.Setenv("BREAKER_RESET_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerResetTimeout)
}
