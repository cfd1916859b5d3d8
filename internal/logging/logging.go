// Package logging builds the process-wide zap logger from configuration.
package logging

import (
	"fmt"

	"github.com/Cyclone1070/butterfi/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger, or a console logger in development mode.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// stdout belongs to command output
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Field keys shared across packages.
const (
	FieldThreadID   = "thread_id"
	FieldTool       = "tool"
	FieldState      = "state"
	FieldRequestID  = "request_id"
	FieldStrategyID = "strategy_id"
	FieldTxHash     = "tx_hash"
)
