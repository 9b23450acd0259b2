// Package logging builds the ectologger used across fern, backed by zap.
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a structured logger. Pretty mode uses zap's development
// encoder; otherwise JSON production output at the given level.
func New(appName, level string, pretty bool) ectologger.Logger {
	var zapLogger *zap.Logger
	if pretty {
		zapLogger, _ = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		zapLogger, _ = cfg.Build()
	}

	return zapadapter.NewZapEctoLogger(zapLogger.Named(appName), nil)
}
