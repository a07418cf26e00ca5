// Package logger builds the zap loggers used by the CLI and server.
package logger

import (
	"fmt"

	"github.com/newthinker/lunar/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is attached to every entry as the "service" field.
const Service = "lunar"

// Config returns the zap configuration New builds from. An empty level
// keeps the preset's default (debug in development, info otherwise).
func Config(development bool, level string) (zap.Config, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return zap.Config{}, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log level %q: %w", level, err))
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.InitialFields = map[string]any{"service": Service}
	return cfg, nil
}

// New creates a zap logger writing to stderr.
func New(development bool, level string) (*zap.Logger, error) {
	cfg, err := Config(development, level)
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool, level string) *zap.Logger {
	log, err := New(development, level)
	if err != nil {
		panic(err)
	}
	return log
}
