package scheduler

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "scheduler"

// startRunSpan creates the root span of a scheduler run.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startRunSpan(ctx context.Context, scheduler, initial string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "scheduler.run", trace.WithAttributes(
		attribute.String("scheduler", scheduler),
		attribute.String("initial_state", initial),
	))
}

// startStatementSpan creates a span around one statement.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startStatementSpan(ctx context.Context, state string, position int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "statement."+state, trace.WithAttributes(
		attribute.String("state", state),
		attribute.Int("position", position),
	))
}
