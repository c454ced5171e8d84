// Package logger provides the structured logger shared by every module.
package logger

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a logging severity.
type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zap() zapcore.Level {
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

// Record is what a Hook receives for every emitted entry.
type Record struct {
	Level   Level
	Message string
	Fields  []any
}

// Hook is invoked synchronously after an entry is written.
type Hook func(ctx context.Context, r Record)

// LoggerInterface is the logging contract consumed by all packages.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) LoggerInterface
}

// Logger is a zap-backed LoggerInterface.
type Logger struct {
	z    *zap.SugaredLogger
	hook Hook
	min  Level
}

var _ LoggerInterface = (*Logger)(nil)

// New builds a JSON logger writing to w at the given minimum level.
func New(w io.Writer, level Level, service string, hook Hook) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zap()),
	)

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).
		With(zap.String("service", service)).
		Sugar()

	return &Logger{z: z, hook: hook, min: level}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop().Sugar(), min: LevelError + 1}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...any) LoggerInterface {
	return &Logger{z: l.z.With(args...), hook: l.hook, min: l.min}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args []any) {
	if level < l.min {
		return
	}

	args = withTrace(ctx, args)

	switch level {
	case LevelDebug:
		l.z.Debugw(msg, args...)
	case LevelInfo:
		l.z.Infow(msg, args...)
	case LevelWarn:
		l.z.Warnw(msg, args...)
	default:
		l.z.Errorw(msg, args...)
	}

	if l.hook != nil {
		l.hook(ctx, Record{Level: level, Message: msg, Fields: args})
	}
}

func withTrace(ctx context.Context, args []any) []any {
	if ctx == nil {
		return args
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return args
	}
	return append(args, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
}
