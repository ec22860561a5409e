// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Logger writes levelled messages to stderr through logrus.  The -v
// count maps onto logrus levels: quiet → error, normal → info,
// verbose → debug, debug → trace.
type Logger struct {
	level LogLevel
	base  *logrus.Logger
	entry *logrus.Entry
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrusLevel(LogLevel(verbosity)))

	l := &Logger{level: LogLevel(verbosity), base: base, entry: logrus.NewEntry(base)}
	l.SetTimestamps(verbosity >= int(LogDebug)) // auto-enable timestamps in debug mode
	return l
}

func logrusLevel(l LogLevel) logrus.Level {
	switch {
	case l <= LogQuiet:
		return logrus.ErrorLevel
	case l == LogNormal:
		return logrus.InfoLevel
	case l == LogVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	l.base.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: !on,
		FullTimestamp:    on,
		TimestampFormat:  "15:04:05.000",
		DisableColors:    true,
	})
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) { l.base.SetOutput(w) }

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// WithComponent returns a child logger whose lines carry a component
// field.  The child shares level and output with its parent.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{level: l.level, base: l.base, entry: l.entry.WithField("component", name)}
}

// WithField returns a child logger with one extra structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{level: l.level, base: l.base, entry: l.entry.WithField(key, value)}
}

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(format, args...))
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.entry.Warn(fmt.Sprintf(format, args...))
	}
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(format, args...))
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Trace(fmt.Sprintf(format, args...))
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(format, args...))
}
