// Package display picks the monitor backend for the running session.
package display

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/FyshOS/screens/config"
	"github.com/FyshOS/screens/monitor"
	"github.com/FyshOS/screens/wayland"
	"github.com/FyshOS/screens/x11"
)

var ErrNoDisplay = errors.New("display: neither WAYLAND_DISPLAY nor DISPLAY is set")

// Select names the backend for a configured choice and the environment.
// auto prefers Wayland when a compositor is advertised.
func Select(backend string, getenv func(string) string) (string, error) {
	switch backend {
	case config.BackendX11:
		if getenv("DISPLAY") == "" {
			return "", ErrNoDisplay
		}
		return x11.Name, nil
	case config.BackendWayland:
		return wayland.Name, nil
	case config.BackendAuto, "":
		switch {
		case getenv("WAYLAND_DISPLAY") != "":
			return wayland.Name, nil
		case getenv("DISPLAY") != "":
			return x11.Name, nil
		}
		return "", ErrNoDisplay
	}
	return "", fmt.Errorf("unknown backend %q", backend)
}

// Open connects the selected backend. Under auto, a compositor that cannot
// be reached falls back to X11 when an X server (such as Xwayland) is
// available.
func Open(cfg config.Config, log zerolog.Logger) (monitor.Backend, error) {
	name, err := Select(cfg.Backend, os.Getenv)
	if err != nil {
		return nil, err
	}

	if name == wayland.Name {
		b, err := wayland.New(log)
		if err == nil {
			return b, nil
		}
		if cfg.Backend != config.BackendAuto || os.Getenv("DISPLAY") == "" {
			return nil, err
		}
		log.Warn().Err(err).Msg("falling back to X11")
	}
	return x11.New(log, cfg)
}
