// Package logger constructs the structured zap logger shared by every
// subsystem of the repository engine. It exists so the engine's packages
// never reach for the standard library's log package directly - every
// operator-facing message carries the same service tag and structured
// fields.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured *zap.SugaredLogger tagged with
// `service`. Callers that need to vary verbosity (e.g. a CLI's --debug flag)
// should use NewWithLevel instead.
func New(service string) *zap.SugaredLogger {
	return NewWithLevel(service, zapcore.InfoLevel)
}

// NewWithLevel builds a production-configured logger at the given minimum level.
func NewWithLevel(service string, level zapcore.Level) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// Logger construction failing indicates a broken encoder/sink
		// configuration, not a runtime condition callers can react to.
		panic(err)
	}

	return log.Sugar().With("service", service)
}

// Noop returns a logger that discards everything, for tests that don't want
// log output but must satisfy a *zap.SugaredLogger dependency.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
