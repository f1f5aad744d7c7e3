package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides an interface into the underlying logging system for anistream's purposes.
type Logger struct {
	logger       *slog.Logger
	out          io.WriteCloser
	traceEnabled bool
}

// Config contains logging information used to set up the logging framework
type Config struct {
	// Log Level.  One of: trace, debug, info, warn, error
	Level string
	// Path to the file to log into
	FilePath string
	// Size in megabytes a log file can reach before it is rotated.  0 uses the lumberjack default of 100.
	MaxSizeMB int
	// Number of rotated files to keep.  0 keeps all of them.
	MaxBackups int
	// Days to keep rotated files.  0 keeps them forever.
	MaxAgeDays int
}

func New(config Config) (*Logger, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	dir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	out := &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
	}

	return newWithWriter(out, config.Level), nil
}

func newWithWriter(out io.WriteCloser, level string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	return &Logger{
		logger:       slog.New(slog.NewJSONHandler(out, opts)),
		out:          out,
		traceEnabled: strings.EqualFold(level, "trace"),
	}
}

// Close the log file
func (l *Logger) Close() {
	if err := l.out.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error closing logger: %v\n", err)
	}
}

// With returns a logger that adds the given attributes to every record.  Logging through a nil *Logger is a no-op.
func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		logger:       l.logger.With(args...),
		out:          l.out,
		traceEnabled: l.traceEnabled,
	}
}

// Trace logs at debug level with a TRACE prefix, only when trace logging is enabled
func (l *Logger) Trace(msg string, args ...any) {
	if l == nil || !l.traceEnabled {
		return
	}
	l.logger.Debug("TRACE: "+msg, args...)
}

// Debug logs a message a debug Level
func (l *Logger) Debug(msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Debug(msg, args...)
}

// Info logs a message at info Level
func (l *Logger) Info(msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info(msg, args...)
}

// Warn logs a message at warn Level
func (l *Logger) Warn(msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Warn(msg, args...)
}

// Error logs a message at error Level.
func (l *Logger) Error(msg string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Error(msg, args...)
}

// parseLogLevel is a helper to convert a string log Level into the slog version.  Defaults to info if a matching log
// Level cannot be found.
func parseLogLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "trace":
		return slog.LevelDebug // Trace level is handled by this log package instead of slog
	default:
		return slog.LevelInfo
	}
}
