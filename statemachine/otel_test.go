package statemachine

import (
	"context"
	"testing"

	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

//nolint:paralleltest // swaps the global tracer provider
func TestRunnerSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	top, err := NewMachine("traced", []State{
		NewCounter("a", 0, "b"),
		NewCounter("b", 0, CompleteTarget),
	})
	require.NoError(t, err)

	r, err := NewRunner(top, world.NewDummy(nil))
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	spans := exporter.GetSpans()

	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name)
	}

	assert.ElementsMatch(t, []string{"transition.b", "statemachine.run"}, names)

	var transition tracetest.SpanStub

	for _, s := range spans {
		if s.Name == "transition.b" {
			transition = s
		}
	}

	assert.Contains(t, transition.Attributes, attribute.String("from_state", "a"))
	assert.Contains(t, transition.Attributes, attribute.String("machine", "traced"))
	assert.Equal(t, spans[len(spans)-1].SpanContext.TraceID(), transition.SpanContext.TraceID())
}
