// internal/utils/logger.go
package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

// Logger is a structured logger that fans records out to the console and,
// once InitLogger has been called, to a JSON log file.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	console io.Writer
	level   *slog.LevelVar
	enabled bool
	slogger *slog.Logger
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = NewLogger(os.Stderr)
	})
	return globalLogger
}

// NewLogger creates a logger writing text records to console.
func NewLogger(console io.Writer) *Logger {
	l := &Logger{
		console: console,
		level:   new(slog.LevelVar),
		enabled: true,
	}
	l.level.Set(slog.LevelInfo)
	l.rebuild()
	return l
}

// InitLogger initializes the global logger with a log file
func InitLogger(logFile string) error {
	return GetLogger().SetLogFile(logFile)
}

// SetLogFile adds a JSON file sink, replacing any previous one.
func (l *Logger) SetLogFile(logFile string) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.rebuild()
	return nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.rebuild()
	return err
}

// rebuild must be called with l.mu held (or before l is shared).
func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: l.level}
	handlers := []slog.Handler{slog.NewTextHandler(l.console, opts)}
	if l.file != nil {
		handlers = append(handlers, slog.NewJSONHandler(l.file, opts))
	}
	l.slogger = slog.New(slogmulti.Fanout(handlers...))
}

// SetLogLevel sets the minimum level for logging
func (l *Logger) SetLogLevel(level LogLevel) {
	l.level.Set(toSlogLevel(level))
}

// ParseLogLevel maps names such as "debug" or "warn" to a LogLevel.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Enable enables or disables logging
func (l *Logger) Enable(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	l.mu.Lock()
	enabled, logger := l.enabled, l.slogger
	l.mu.Unlock()
	if !enabled {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields))
	for key, value := range fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	logger.LogAttrs(context.Background(), toSlogLevel(level), message, attrs...)
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DEBUG, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(INFO, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WARNING, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ERROR, message, fields)
}
