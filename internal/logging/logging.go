// Package logging builds the zap logger from app configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/curvewatch/curvewatch/internal/config"
)

// New builds a *zap.Logger for the configured level and format.
// Format "json" uses the production encoder; anything else gets the
// human-readable console encoder.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := zc.Level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
	}

	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
