// Package log wires up the structured logger the rest of the engine
// calls into, built on go.uber.org/zap. Call sites use the familiar
// sugared shape — logger.Debugw("message", "key", value, ...).
package log

import (
	"go.uber.org/zap"
)

// Logger is the structured logger type used throughout the engine.
type Logger = zap.SugaredLogger

// New builds a production logger at the given level ("debug", "info",
// "warn", "error"). An unrecognized level falls back to "info".
func New(level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// NewNop returns a logger that discards everything, for tests that do not
// care about log output.
func NewNop() *Logger {
	return zap.NewNop().Sugar()
}

// With attaches "height" and "round" fields, the pair almost every
// consensus log line carries.
func With(l *Logger, height, round uint64) *Logger {
	return l.With("height", height, "round", round)
}
