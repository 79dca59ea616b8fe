package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"PORT", "TICK_INTERVAL_MS", "MIN_GREEN_SEC", "MAX_GREEN_SEC", "BASE_GREEN_SEC",
		"YELLOW_SEC", "ALL_RED_SEC", "EMERGENCY_HOLD_SEC", "EMERGENCY_MIN_GREEN_SEC",
		"DETECTION_CONFIDENCE_THRESHOLD",
		"CAMERA_STALENESS_SEC", "SHUTDOWN_TIMEOUT_SEC", "LOG_LEVEL", "SENTRY_DSN", "DEV_MODE",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("MIN_GREEN_SEC", "12")
	t.Setenv("MAX_GREEN_SEC", "50")
	t.Setenv("TICK_INTERVAL_MS", "500")
	t.Setenv("EMERGENCY_MIN_GREEN_SEC", "8")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 12.0, cfg.MinGreenSec)
	assert.Equal(t, 50.0, cfg.MaxGreenSec)
	assert.Equal(t, 8.0, cfg.EmergencyMinGreenSec)
	assert.Equal(t, 500*time.Millisecond, cfg.TickInterval)
	assert.True(t, cfg.DevMode)
}

func TestLoad_RejectsUnparsableFloat(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_GREEN_SEC", "not-a-number")

	_, err := Load()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MIN_GREEN_SEC", cfgErr.Var)
}

func TestLoad_RejectsMinGreaterThanMax(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_GREEN_SEC", "60")
	t.Setenv("MAX_GREEN_SEC", "10")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsTickIntervalOutsideOneSecond(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICK_INTERVAL_MS", "5000")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_DevModeAcceptsOneOrTrue(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEV_MODE", "1")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
}
