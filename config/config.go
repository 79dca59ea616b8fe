// Package config loads process configuration from environment
// variables, the same env-var-with-defaults shape main.go's
// loadConfig used, but returning a typed error instead of silently
// ignoring a malformed value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigError reports which environment variable failed to parse.
type ConfigError struct {
	Var string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid %s: %v", e.Var, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds every tunable the intersection controller needs at
// startup.
type Config struct {
	Port string

	TickInterval         time.Duration
	MinGreenSec          float64
	MaxGreenSec          float64
	BaseGreenSec         float64
	YellowSec            float64
	AllRedSec            float64
	EmergencyHoldSec     float64
	EmergencyMinGreenSec float64

	DetectionConfidenceThreshold float32
	CameraStalenessSec           float64
	ShutdownTimeoutSec           float64

	LogLevel string
	SentryDSN string
	DevMode   bool
}

// Default returns the stock configuration: 10-60s green, 5s yellow,
// 3s all-red, 15s emergency hold.
func Default() Config {
	return Config{
		Port:                         "3000",
		TickInterval:                 time.Second,
		MinGreenSec:                  10,
		MaxGreenSec:                  60,
		BaseGreenSec:                 20,
		YellowSec:                    5,
		AllRedSec:                    3,
		EmergencyHoldSec:             15,
		EmergencyMinGreenSec:         10,
		DetectionConfidenceThreshold: 0.5,
		CameraStalenessSec:           5,
		ShutdownTimeoutSec:           10,
		LogLevel:                     "info",
	}
}

// Load reads Config fields from the environment, falling back to
// Default()'s values for anything unset, and returns a *ConfigError
// for anything set but unparsable.
func Load() (Config, error) {
	cfg := Default()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}

	var err error
	if cfg.TickInterval, err = durationEnv("TICK_INTERVAL_MS", cfg.TickInterval, time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.MinGreenSec, err = floatEnv("MIN_GREEN_SEC", cfg.MinGreenSec); err != nil {
		return Config{}, err
	}
	if cfg.MaxGreenSec, err = floatEnv("MAX_GREEN_SEC", cfg.MaxGreenSec); err != nil {
		return Config{}, err
	}
	if cfg.BaseGreenSec, err = floatEnv("BASE_GREEN_SEC", cfg.BaseGreenSec); err != nil {
		return Config{}, err
	}
	if cfg.YellowSec, err = floatEnv("YELLOW_SEC", cfg.YellowSec); err != nil {
		return Config{}, err
	}
	if cfg.AllRedSec, err = floatEnv("ALL_RED_SEC", cfg.AllRedSec); err != nil {
		return Config{}, err
	}
	if cfg.EmergencyHoldSec, err = floatEnv("EMERGENCY_HOLD_SEC", cfg.EmergencyHoldSec); err != nil {
		return Config{}, err
	}
	if cfg.EmergencyMinGreenSec, err = floatEnv("EMERGENCY_MIN_GREEN_SEC", cfg.EmergencyMinGreenSec); err != nil {
		return Config{}, err
	}
	if cfg.CameraStalenessSec, err = floatEnv("CAMERA_STALENESS_SEC", cfg.CameraStalenessSec); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeoutSec, err = floatEnv("SHUTDOWN_TIMEOUT_SEC", cfg.ShutdownTimeoutSec); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("DETECTION_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return Config{}, &ConfigError{Var: "DETECTION_CONFIDENCE_THRESHOLD", Err: err}
		}
		cfg.DetectionConfidenceThreshold = float32(f)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.SentryDSN = os.Getenv("SENTRY_DSN")
	cfg.DevMode = os.Getenv("DEV_MODE") == "1" || os.Getenv("DEV_MODE") == "true"

	if cfg.MinGreenSec <= 0 || cfg.MaxGreenSec < cfg.MinGreenSec {
		return Config{}, &ConfigError{Var: "MIN_GREEN_SEC/MAX_GREEN_SEC", Err: fmt.Errorf("require 0 < min <= max, got min=%v max=%v", cfg.MinGreenSec, cfg.MaxGreenSec)}
	}
	if cfg.TickInterval <= 0 || cfg.TickInterval > time.Second {
		return Config{}, &ConfigError{Var: "TICK_INTERVAL_MS", Err: fmt.Errorf("must be in (0, 1000ms], got %v", cfg.TickInterval)}
	}

	return cfg, nil
}

func durationEnv(name string, def time.Duration, unit time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Var: name, Err: err}
	}
	return time.Duration(n * float64(unit)), nil
}

func floatEnv(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Var: name, Err: err}
	}
	return f, nil
}
