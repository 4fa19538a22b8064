package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Lifecycle.OverdueAfter())
	assert.False(t, cfg.Lifecycle.StrictConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Activity.PollInterval())
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 0.5, cfg.Intake.RatePerSecond)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("GATEWAY_BASE_URL", "https://store.example.com/exec/")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "4")
	t.Setenv("LIFECYCLE_OVERDUE_DAYS", "3")
	t.Setenv("LIFECYCLE_STRICT_CONCURRENCY", "true")
	t.Setenv("ACTIVITY_POLL_INTERVAL_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://store.example.com/exec", cfg.Gateway.BaseURL)
	assert.Equal(t, 4*time.Second, cfg.Gateway.Timeout())
	assert.Equal(t, 3*24*time.Hour, cfg.Lifecycle.OverdueAfter())
	assert.True(t, cfg.Lifecycle.StrictConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Activity.PollInterval())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("INTAKE_RATE_PER_SECOND", "fast")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
