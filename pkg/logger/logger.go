// Package logger provides structured logging helpers shared across the service.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module provides the process-wide loggers via fx.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
	fx.Provide(NewZapLogger),
)

// Scope tags a derived logger with the name of its owning component, e.g.
// log.With(logger.Scope("ingestion.coordinator")).
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error wraps an error for structured logging.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds the process-wide slog.Logger. Level is read from LOG_LEVEL
// (debug|info|warn|warning|error, case-insensitive, defaulting to info); the
// handler is text in development and JSON when GO_ENV=production.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// NewZapLogger builds the zap.Logger used by the goose-backed migrator, which
// predates the slog migration and was never worth porting off zap.
func NewZapLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	if !strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
