// Package logger provides zap-backed logging for the accounts service
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/memtensor/accounts/pkg/interfaces"
)

// ZapLogger adapts a zap.Logger to interfaces.Logger
type ZapLogger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

// Options configures a ZapLogger
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	File   string // empty means stdout; "stderr" writes to standard error
}

// New builds a logger from options
func New(opts Options) (*ZapLogger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(normalizeLevel(opts.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(opts.Format) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", opts.Format)
	}

	sink := zapcore.AddSync(os.Stdout)
	switch opts.File {
	case "":
	case "stderr":
		sink = zapcore.AddSync(os.Stderr)
	default:
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return &ZapLogger{
		base:  zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		level: level,
	}, nil
}

// NewFromZap wraps an existing zap logger
func NewFromZap(base *zap.Logger) *ZapLogger {
	return &ZapLogger{base: base, level: zap.NewAtomicLevelAt(base.Level())}
}

// Debug logs debug level messages
func (l *ZapLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.base.Debug(msg, toZapFields(fields)...)
}

// Info logs info level messages
func (l *ZapLogger) Info(msg string, fields ...map[string]interface{}) {
	l.base.Info(msg, toZapFields(fields)...)
}

// Warn logs warning level messages
func (l *ZapLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.base.Warn(msg, toZapFields(fields)...)
}

// Error logs error level messages
func (l *ZapLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	zf := toZapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.base.Error(msg, zf...)
}

// Fatal logs fatal level messages and exits
func (l *ZapLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {
	zf := toZapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.base.Fatal(msg, zf...)
}

// WithFields returns a logger with additional fields
func (l *ZapLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	return &ZapLogger{
		base:  l.base.With(toZapFields([]map[string]interface{}{fields})...),
		level: l.level,
	}
}

// SetLevel changes the level of this logger and every logger derived from it
func (l *ZapLogger) SetLevel(level string) error {
	return l.level.UnmarshalText([]byte(normalizeLevel(level)))
}

// Level returns the current level name
func (l *ZapLogger) Level() string {
	return l.level.String()
}

// Sync flushes buffered entries
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}

// Zap exposes the underlying zap logger
func (l *ZapLogger) Zap() *zap.Logger {
	return l.base
}

func toZapFields(fields []map[string]interface{}) []zap.Field {
	var out []zap.Field
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			out = append(out, zap.Any(key, value))
		}
	}
	return out
}

func normalizeLevel(level string) string {
	if level == "" {
		return "info"
	}
	if strings.EqualFold(level, "warning") {
		return "warn"
	}
	return strings.ToLower(level)
}

// NewConsoleLogger creates a new console logger
func NewConsoleLogger(level string) interfaces.Logger {
	l, err := New(Options{Level: level, Format: "console"})
	if err != nil {
		l, _ = New(Options{Level: "info", Format: "console"})
	}
	return l
}

// NewTestLogger creates a logger for testing
func NewTestLogger() interfaces.Logger {
	return NewFromZap(zap.NewNop())
}

// NewLogger creates a new logger with default settings
func NewLogger() interfaces.Logger {
	return NewConsoleLogger("info")
}
