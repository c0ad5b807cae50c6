// Package logging defines the structured logger the server components
// depend on, decoupled from the concrete backend.
package logging

import "context"

// Logger logs structured key-value pairs with the request context
// attached, so handler-scoped attributes survive into the records.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs.
	With(args ...any) Logger
}
