// Package logging builds the zap logger from configuration.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/idilsaglam/tada/internal/config"
)

// New builds a production logger at cfg.Level writing to cfg.File, or to
// stderr when no file is set. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(cfg.Level); err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ForTUI is New, except that an unset file falls back to dir/tada.log so
// nothing is written over the alternate screen.
func ForTUI(cfg config.LoggingConfig, verbose bool, dir string) (*zap.Logger, error) {
	if cfg.File == "" {
		cfg.File = filepath.Join(dir, "tada.log")
	}
	return New(cfg, verbose)
}
