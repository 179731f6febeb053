package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = iota
	// cycleIDKey is the context key for the collection cycle ID.
	cycleIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// Ctx returns a logger from the context or the default logger.
// This is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithCycleID adds a collection cycle ID to the context and the
// context logger, so every event within one cycle carries it.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	ctx = context.WithValue(ctx, cycleIDKey, cycleID)

	logger := FromContext(ctx)
	newLogger := logger.With().Str("cycle_id", cycleID).Logger()
	return WithLogger(ctx, &newLogger)
}

// CycleID extracts the collection cycle ID from context.
func CycleID(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSource returns a context whose logger carries the source tag.
func WithSource(ctx context.Context, source string) context.Context {
	logger := FromContext(ctx)
	newLogger := logger.With().Str("source", source).Logger()
	return WithLogger(ctx, &newLogger)
}

// WithRegion returns a context whose logger carries the region.
func WithRegion(ctx context.Context, region string) context.Context {
	logger := FromContext(ctx)
	newLogger := logger.With().Str("region", region).Logger()
	return WithLogger(ctx, &newLogger)
}
