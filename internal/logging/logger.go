// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared application logger. It is a no-op logger until Init is called.
var L = zap.NewNop()

var initOnce sync.Once

// New builds a zap.Logger configured for development or production.
// When logDir is non-empty the logger also writes to <logDir>/scraper.log.
func New(development bool, logDir string) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", logDir, err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, filepath.Join(logDir, "scraper.log"))
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Init builds the shared logger once and installs it as L. Subsequent calls
// are no-ops, so commands can call it unconditionally.
func Init(development bool, logDir string) error {
	var err error
	initOnce.Do(func() {
		var logger *zap.Logger
		logger, err = New(development, logDir)
		if err != nil {
			return
		}
		L = logger
	})
	return err
}
