// Package logger is a thin zap facade. Package-level helpers write to the
// logger installed by Init; before Init they discard everything.
package logger

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	z *zap.Logger
}

var global atomic.Pointer[Logger]

func init() { global.Store(&Logger{z: zap.NewNop()}) }

// Init builds the process logger. level is one of debug|info|warn|error.
func Init(level string, asJSON bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logger.Init: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if !asJSON {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("logger.Init: %w", err)
	}
	global.Store(&Logger{z: z})
	return nil
}

// Set installs z as the process logger (tests use zaptest / observer cores).
func Set(z *zap.Logger) { global.Store(&Logger{z: z}) }

func L() *zap.Logger { return global.Load().z }

func Sync() error { return global.Load().z.Sync() }

func With(fields ...Field) *Logger { return &Logger{z: global.Load().z.With(fields...)} }

type ctxKey struct{}

// ContextWithFields attaches fields that every ctx-aware call will include.
func ContextWithFields(ctx context.Context, fields ...Field) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]Field)
	merged := make([]Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func fromContext(ctx context.Context, fields []Field) []Field {
	if ctx == nil {
		return fields
	}
	extra, _ := ctx.Value(ctxKey{}).([]Field)
	if len(extra) == 0 {
		return fields
	}
	return append(extra[:len(extra):len(extra)], fields...)
}

// Log writes at a level chosen at runtime, e.g. by response status.
func (l *Logger) Log(ctx context.Context, lvl Level, msg string, fields ...Field) {
	l.z.Log(lvl, msg, fromContext(ctx, fields)...)
}

func Debug(ctx context.Context, msg string, fields ...Field) {
	global.Load().z.Debug(msg, fromContext(ctx, fields)...)
}

func Info(ctx context.Context, msg string, fields ...Field) {
	global.Load().z.Info(msg, fromContext(ctx, fields)...)
}

func Warn(ctx context.Context, msg string, fields ...Field) {
	global.Load().z.Warn(msg, fromContext(ctx, fields)...)
}

func Error(ctx context.Context, msg string, fields ...Field) {
	global.Load().z.Error(msg, fromContext(ctx, fields)...)
}
