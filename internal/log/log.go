package log

import "sync/atomic"

var defaultLogger atomic.Pointer[Logger]

// SetDefaultLogger installs the logger behind the package level functions.  Until one is set they discard everything.
func SetDefaultLogger(logger *Logger) {
	defaultLogger.Store(logger)
}

func DefaultLogger() *Logger {
	return defaultLogger.Load()
}

func Debug(msg string, args ...any) { DefaultLogger().Debug(msg, args...) }

func Info(msg string, args ...any) { DefaultLogger().Info(msg, args...) }

func Warn(msg string, args ...any) { DefaultLogger().Warn(msg, args...) }

func Error(msg string, args ...any) { DefaultLogger().Error(msg, args...) }

// Trace logs at debug level when the configured level is trace.  slog has no trace level of its own.
func Trace(msg string, args ...any) { DefaultLogger().Trace(msg, args...) }

// With returns a child of the default logger carrying args on every record.  The result is nil, and silent, when no
// default logger is set.  Components that log a lot about one entity (a provider, a session) hold on to it.
func With(args ...any) *Logger {
	return DefaultLogger().With(args...)
}
