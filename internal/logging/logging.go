// Package logging provides the process-wide structured logger.
//
// It is intentionally minimal: the engine only ever needs a debug trail for
// swallowed I/O errors (history saves/loads) and a place to report fatal
// startup failures. Everything else — log rotation, sampling, sinks — is
// left to the operator's zap configuration.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger = zap.NewNop()
)

// Level mirrors the `logging.level` config key.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init points the global logger at a file path and minimum level. Safe to
// call more than once; the latest call wins. If directory is empty, logging
// is a no-op (matches `logging.directory` being unset).
func Init(directory string, level Level) error {
	if directory == "" {
		mu.Lock()
		logger = zap.NewNop()
		mu.Unlock()
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.OutputPaths = []string{directory}
	cfg.ErrorOutputPaths = []string{directory}

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug-level message. Used for swallowed I/O errors that must
// never crash the app (history saves/loads, best-effort deletes).
func Debug(msg string, fields ...zap.Field) {
	current().Debug(msg, fields...)
}

// Error logs an error-level message.
func Error(msg string, fields ...zap.Field) {
	current().Error(msg, fields...)
}

// Sync flushes any buffered log entries. Call on shutdown.
func Sync() error {
	return current().Sync()
}
