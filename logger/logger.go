// Package logger builds the structured zerolog loggers used by every
// component.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string `yaml:"level"`
	Debug      bool   `yaml:"debug"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format"`
	// Console switches from JSON lines to zerolog's human readable writer.
	Console bool `yaml:"console"`
}

// New returns a root logger for cfg. Output defaults to stderr so that
// command output on stdout stays clean.
func New(cfg Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		output = os.Stdout
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	timeFormat := time.RFC3339
	if cfg.TimeFormat != "" {
		timeFormat = cfg.TimeFormat
	}
	if cfg.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: timeFormat}
	}
	zerolog.TimeFieldFormat = timeFormat

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// Component derives a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// NewTestLogger creates a logger that discards everything.
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
