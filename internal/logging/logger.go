// Package logging is the structured, leveled logger shared by every service.
// Output is JSON on stderr so that MCP stdio mode keeps stdout for protocol frames.
package logging

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level controls which messages are emitted
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string onto a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field is one or more structured key/value pairs attached to a log entry
type Field struct {
	pairs []zap.Field
}

// WithField creates a single key/value field
func WithField(key string, value interface{}) Field {
	return Field{pairs: []zap.Field{zap.Any(key, value)}}
}

// WithFields creates a field group from a map. Keys are emitted in sorted order.
func WithFields(fields map[string]interface{}) Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, zap.Any(k, fields[k]))
	}
	return Field{pairs: pairs}
}

// Logger is a thin wrapper around zap with the service's call shape
type Logger struct {
	zl *zap.Logger
}

// New creates a logger writing JSON to stderr at the given level
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing JSON to w
func NewWithWriter(level Level, w io.Writer) *Logger {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey: "message",
		TimeKey:    "timestamp",
		LevelKey:   "severity",
		EncodeTime: zapcore.RFC3339TimeEncoder,
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(l.String()))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)

	return &Logger{zl: zap.New(core)}
}

// With returns a child logger that always carries the given fields
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(flatten(fields)...)}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.zl.Debug(msg, flatten(fields)...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.zl.Info(msg, flatten(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.zl.Warn(msg, flatten(fields)...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.zl.Error(msg, flatten(fields)...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func flatten(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	n := 0
	for _, f := range fields {
		n += len(f.pairs)
	}
	out := make([]zap.Field, 0, n)
	for _, f := range fields {
		out = append(out, f.pairs...)
	}
	return out
}
