package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/imperative/envutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startRunSpan creates the root span of a runner.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startRunSpan(ctx context.Context, machine string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.run")
	span.SetAttributes(attribute.String("machine", machine))
	logSpanDebug(ctx, "started", "statemachine.run", span)

	return ctx, span
}

// startTransitionSpan creates a child span around one transition.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startTransitionSpan(ctx context.Context, machine, from, to string) (context.Context, trace.Span) {
	spanName := "transition." + to
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName)
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	)
	logSpanDebug(ctx, "started", spanName, span)

	return ctx, span
}

// logSpanDebug logs span creation when IMPERATIVE_DEBUG is set.
func logSpanDebug(ctx context.Context, phase string, spanName string, span trace.Span) {
	if !isDebugMode(ctx) {
		return
	}

	spanCtx := span.SpanContext()
	slog.InfoContext(ctx, "OTEL Span "+phase,
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

func isDebugMode(ctx context.Context) bool {
	return envutil.Bool(ctx, "IMPERATIVE_DEBUG").ValueOrElse(false)
}
