package logger

import (
	"context"
	"log/slog"
)

// loggerKey is the private context key used to carry a *slog.Logger.
type loggerKey struct{}

// WithLogger returns a copy of ctx carrying the given logger. Handlers
// and long-running operations attach a logger enriched with request or
// sync-pass attributes so downstream code logs with that context.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger carried by ctx, or the process default
// logger when none was attached. It never returns nil.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault returns the logger carried by ctx, or fallback
// when none was attached. Components that hold their own component
// logger use this so per-call context wins but the component logger
// still applies. A nil fallback degrades to the process default.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
