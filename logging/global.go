// Package logging provides the process-wide slog logger: console text output plus
// JSON output to weekly rotating files, and an HTTP request logging middleware.
package logging

import (
	"log/slog"
	"os"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance with default options.
// An empty logDir logs to the console only.
func InitLogger(logDir string) {
	InitLoggerWithOptions(logDir, DefaultOptions())
}

// InitLoggerWithOptions initializes the global logger instance
func InitLoggerWithOptions(logDir string, opts Options) {
	if DefaultLoggingService != nil {
		_ = DefaultLoggingService.Close()
	}

	logger, rotating := SetupLogger(logDir, opts)
	DefaultLoggingService = &LoggingService{
		Logger:   logger,
		rotating: rotating,
	}
	slog.SetDefault(logger)
}

// Close releases the log file, if any
func (s *LoggingService) Close() error {
	if s.rotating == nil {
		return nil
	}
	return s.rotating.Close()
}

// Logger returns the global logger, or a console fallback if not initialized
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return fallbackLogger(slog.LevelDebug)
	}
	return DefaultLoggingService.Logger
}

func fallbackLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallbackLogger(slog.LevelInfo).Info(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Info(msg, args...)
}

func Error(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallbackLogger(slog.LevelError).Error(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		fallbackLogger(slog.LevelWarn).Warn(msg, args...)
		return
	}
	DefaultLoggingService.Logger.Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Debug output is dropped until the logger is configured
		return
	}
	DefaultLoggingService.Logger.Debug(msg, args...)
}
