package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type to avoid collisions with other packages
// storing values in the same context.
type contextKey struct{}

// loggerKey is the context key under which a request- or task-scoped
// logger is stored.
var loggerKey = contextKey{}

// WithLogger returns a new context carrying the given logger. Task
// handlers use this to propagate a logger already scoped with the
// note and task identifiers down into stores and clients.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger stored in the context, or nil if
// none is present.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return nil
}

// FromContextOrDefault retrieves the logger stored in the context,
// falling back to the provided default, and finally to slog.Default.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
