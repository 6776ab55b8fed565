// Package config loads screens configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FyshOS/screens/logger"
	"github.com/FyshOS/screens/xsettings"
)

const (
	BackendAuto    = "auto"
	BackendX11     = "x11"
	BackendWayland = "wayland"

	defaultDebounce = 50 * time.Millisecond
)

// Config holds runtime configuration values.
type Config struct {
	// Backend is auto, x11 or wayland.
	Backend string `yaml:"backend"`
	// RefreshDebounce coalesces bursts of RandR notifications.
	RefreshDebounce time.Duration `yaml:"refresh_debounce"`
	// ScaleEnv names the environment variable overriding the UI scale.
	// Empty disables the override.
	ScaleEnv string `yaml:"scale_env"`

	Log logger.Config `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:         BackendAuto,
		RefreshDebounce: defaultDebounce,
		ScaleEnv:        xsettings.DefaultScaleEnv,
	}
}

// Load reads path when it is non-empty and exists, then applies
// SCREENS_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg.Backend = envString("SCREENS_BACKEND", cfg.Backend)
	cfg.Log.Level = envString("SCREENS_LOG_LEVEL", cfg.Log.Level)

	debounce, err := envInt("SCREENS_DEBOUNCE_MS", int(cfg.RefreshDebounce/time.Millisecond))
	if err != nil {
		return Config{}, err
	}
	cfg.RefreshDebounce = time.Duration(debounce) * time.Millisecond

	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "":
		c.Backend = BackendAuto
	case BackendAuto, BackendX11, BackendWayland:
	default:
		return fmt.Errorf("backend must be auto, x11 or wayland, got %q", c.Backend)
	}
	if c.RefreshDebounce < 0 {
		return fmt.Errorf("refresh_debounce must be >= 0")
	}
	return nil
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns an int env override when present, otherwise a default.
func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}
