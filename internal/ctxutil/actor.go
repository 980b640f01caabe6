// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// ActorKey is the context key for the actor that triggered an operation
// (for example "cli", "scheduler", "policy-watcher").
type ActorKey struct{}

// SweepIDKey is the context key for the current sweep run ID.
type SweepIDKey struct{}

// WithActorID returns a context with the actor ID embedded.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the actor ID from context, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok {
		return v
	}
	return ""
}

// WithSweepID returns a context carrying a sweep run ID.
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, SweepIDKey{}, sweepID)
}

// SweepIDFromContext returns the sweep run ID, or empty string outside a sweep.
func SweepIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(SweepIDKey{}).(string); ok {
		return v
	}
	return ""
}
