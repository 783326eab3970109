package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	return FromContextOr(ctx, &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	})
}

// FromContextOr returns the logger stored in ctx, or fallback when none was
// stored.
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok && logger != nil {
		return logger
	}
	return fallback
}

// StructuredLogger provides structured logging methods with context awareness.
// A logger stored in the context wins over the one it was built with, so
// request-scoped attributes carry over.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

func (sl *StructuredLogger) from(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, sl.logger).Logger
}

// LogAuth records the outcome of a login, register or logout.
func (sl *StructuredLogger) LogAuth(ctx context.Context, op, sessionID, userID string, ok bool) {
	fields := NewFields().
		WithOperation(op).
		WithSession(sessionID).
		WithUser(userID)
	fields[FieldSuccess] = ok

	level := slog.LevelInfo
	if !ok {
		level = slog.LevelWarn
	}
	sl.from(ctx).Log(ctx, level, "Auth operation finished", append(fields.ToSlice(), FieldComponent, ComponentAuth)...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.from(ctx).ErrorContext(ctx, msg, all.ToSlice()...)
}
