package diagnostics

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/world"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

//nolint:paralleltest // Test modifies global Prometheus metric state
func TestMetricsSink(t *testing.T) {
	eventsTotal.Reset()
	viewValue.Reset()

	sink := MetricsSink{Gauges: []string{"temp_k", "missing"}}
	sink.Record(context.Background(), Event{
		State:   "soak",
		Elapsed: 2 * time.Second,
		View:    world.NewView(time.Time{}, map[string]any{"temp_k": 0.25}),
	})
	sink.Record(context.Background(), Event{State: "soak"})

	assert.InDelta(t, 2.0, testutil.ToFloat64(eventsTotal.WithLabelValues("soak")), 0)
	assert.InDelta(t, 0.25, testutil.ToFloat64(viewValue.WithLabelValues("temp_k")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(viewValue))
}
