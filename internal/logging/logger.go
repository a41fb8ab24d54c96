// Package logging defines the structured-logging interface used across
// ordersync. Services depend on Logger only; the CLI wires the slog adapter.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "collection refreshed", "collection", "products", "count", n)
type Logger interface {
	// Debug logs diagnostic details (photo cache hits, probe results).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a degraded but recoverable condition, e.g. a refresh that
	// fell back to cached data.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
