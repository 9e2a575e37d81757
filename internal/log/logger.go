// Package log provides structured logging for phostdio using zap.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with phostdio-specific helpers.
type Logger struct {
	*zap.Logger
	onTrace func(category, op, detail string) // trace callback for I/O events
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	// Shorter timestamps in development
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback to no-op if config fails
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// SetOnTrace sets the trace callback for I/O events.
func (l *Logger) SetOnTrace(fn func(category, op, detail string)) {
	l.onTrace = fn
}

// Trace logs an I/O event and calls the trace callback if set.
// This is the primary method for the stream and descriptor layers to report
// their activity. Extra fields refine the structured record; the callback
// sees only the flat triple.
func (l *Logger) Trace(category, op, detail string, fields ...zap.Field) {
	if l.onTrace != nil {
		l.onTrace(category, op, detail)
	}

	all := make([]zap.Field, 0, 3+len(fields))
	all = append(all,
		zap.String("cat", category),
		Op(op),
		zap.String("detail", detail),
	)
	all = append(all, fields...)
	l.Debug("io", all...)
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{
		Logger:  l.Logger.With(zap.String("cat", category)),
		onTrace: l.onTrace,
	}
}

// Field helpers for common patterns.

// Fd creates a file-descriptor field.
func Fd(fd int) zap.Field {
	return zap.Int("fd", fd)
}

// Slot creates a stream-table slot field.
func Slot(slot int) zap.Field {
	return zap.Int("slot", slot)
}

// Op creates an operation name field.
func Op(name string) zap.Field {
	return zap.String("op", name)
}

// Size creates a size field.
func Size(size int) zap.Field {
	return zap.Int("size", size)
}

// Path creates a path field.
func Path(path string) zap.Field {
	return zap.String("path", path)
}
