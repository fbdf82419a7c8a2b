package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *slog.Logger
	zapLogger    *zap.Logger
	initMu       sync.Mutex
)

// ParseLevel maps a config level string to a zap level. Unknown strings fall back to INFO.
func ParseLevel(levelStr string) (zapcore.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return zapcore.DebugLevel, true
	case "INFO", "":
		return zapcore.InfoLevel, true
	case "WARN", "WARNING":
		return zapcore.WarnLevel, true
	case "ERROR":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// Init builds the zap logger, installs it behind the global slog logger and returns it so
// main can Sync it on exit.
func Init(levelStr string, development bool) (*zap.Logger, error) {
	level, ok := ParseLevel(levelStr)

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}
	install(zl)

	if !ok {
		Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zl, nil
}

// InitWithZap installs an existing zap logger, e.g. zap.NewNop() in tests.
func InitWithZap(zl *zap.Logger) {
	install(zl)
}

func install(zl *zap.Logger) {
	initMu.Lock()
	defer initMu.Unlock()
	zapLogger = zl
	globalLogger = slog.New(zapslog.NewHandler(zl.Core()))
	slog.SetDefault(globalLogger)
}

func ensureInitialized() *slog.Logger {
	initMu.Lock()
	l := globalLogger
	initMu.Unlock()
	if l != nil {
		return l
	}
	zl, err := zap.NewProduction()
	if err != nil {
		zl = zap.NewNop()
	}
	install(zl)
	return ensureInitialized()
}

// Zap returns the underlying zap logger, initialising a default one when needed.
func Zap() *zap.Logger {
	ensureInitialized()
	initMu.Lock()
	defer initMu.Unlock()
	return zapLogger
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) {
	l := ensureInitialized()
	if l.Enabled(context.Background(), slog.LevelDebug) {
		l.Debug(msg, args...)
	}
}

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) {
	ensureInitialized().Info(msg, args...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) {
	ensureInitialized().Warn(msg, args...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) {
	ensureInitialized().Error(msg, args...)
}

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized().Error(msg, args...)
	if zl := Zap(); zl != nil {
		_ = zl.Sync()
	}
	os.Exit(1)
}
