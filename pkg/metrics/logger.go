package metrics

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Format specifies the log output format.
type Format int

const (
	FormatText Format = iota // Human-readable text format
	FormatJSON               // JSON format for log aggregation
)

// String returns "text" or "json".
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

// ParseLevel parses a level name. "silent", "off" and "none" report
// silent=true, meaning the caller should discard all output.
func ParseLevel(s string) (level logrus.Level, silent bool, err error) {
	switch strings.ToLower(s) {
	case "silent", "off", "none":
		return logrus.PanicLevel, true, nil
	case "warning":
		return logrus.WarnLevel, false, nil
	}
	level, err = logrus.ParseLevel(s)
	return level, false, err
}

// LevelFromEnv returns the level named by the LOG environment variable.
func LevelFromEnv() (level logrus.Level, silent bool, ok bool) {
	x, exists := os.LookupEnv("LOG")
	if !exists {
		return logrus.InfoLevel, false, false
	}
	level, silent, err := ParseLevel(x)
	if err != nil {
		return logrus.InfoLevel, false, false
	}
	return level, silent, true
}

// LoggerOption configures a logger built by NewLogger.
type LoggerOption func(*logrus.Logger)

// WithOutput sets the log destination.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

// WithLevel sets the minimum level.
func WithLevel(level logrus.Level) LoggerOption {
	return func(l *logrus.Logger) {
		l.SetLevel(level)
	}
}

// WithFormat selects the text or JSON formatter.
func WithFormat(format Format) LoggerOption {
	return func(l *logrus.Logger) {
		if format == FormatJSON {
			l.SetFormatter(&logrus.JSONFormatter{})
			return
		}
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// WithSilent discards all output.
func WithSilent() LoggerOption {
	return func(l *logrus.Logger) {
		l.SetOutput(io.Discard)
	}
}

// NewLogger creates a logrus logger writing text to stderr at the level
// named by LOG (info if unset), then applies opts.
func NewLogger(opts ...LoggerOption) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, silent, _ := LevelFromEnv()
	l.SetLevel(level)
	if silent {
		l.SetOutput(io.Discard)
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NullLogger returns a logger that discards all output.
func NullLogger() *logrus.Logger {
	return NewLogger(WithSilent())
}

// --- Global Logger ---

var (
	globalLogger   *logrus.Logger
	globalLoggerMu sync.RWMutex
)

func init() {
	globalLogger = NewLogger()
}

// SetLogger sets the global logger.
func SetLogger(l *logrus.Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = l
}

// GetLogger returns the global logger.
func GetLogger() *logrus.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}
