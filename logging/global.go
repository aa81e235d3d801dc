package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Options configures the process-wide logger.
type Options struct {
	Dir            string
	RetentionWeeks int
	MaxFileSize    int64
	Level          slog.Level
}

type LoggingService struct {
	Logger *slog.Logger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance.
func InitLogger(opts Options) {
	DefaultLoggingService = &LoggingService{
		Logger: setup(opts),
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// ParseLevel maps a config log-level string to a slog level. Unknown values
// map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logger returns the global logger, or a console fallback before InitLogger
// has run.
func logger() *slog.Logger {
	if DefaultLoggingService != nil && DefaultLoggingService.Logger != nil {
		return DefaultLoggingService.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
