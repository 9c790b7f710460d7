package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is the global zap logger instance
var log = zap.NewNop()

// Config holds logger configuration
type Config struct {
	Debug bool
	// Fields are attached to every entry (e.g. the service name).
	Fields map[string]string
}

// Initialize builds the global logger
func Initialize(cfg Config) error {
	var zapConfig zap.Config
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	built, err := zapConfig.Build()
	if err != nil {
		return err
	}

	fields := make([]zap.Field, 0, len(cfg.Fields))
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	log = built.With(fields...)
	return nil
}

// Named returns a child of the global logger scoped to a component
func Named(name string) *zap.Logger {
	return log.Named(name)
}

// Sync flushes buffered entries
func Sync() {
	_ = log.Sync()
}

type ctxKey struct{}

// WithContext stores a logger on the context
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored on the context, or the global logger
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return log
}

// InfoCtx logs an info message with context
func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

// ErrorCtx logs an error message with context
func ErrorCtx(ctx context.Context, err error, fields ...zap.Field) {
	if err != nil {
		FromContext(ctx).Error(err.Error(), fields...)
	} else {
		FromContext(ctx).Error("error occurred", fields...)
	}
}
