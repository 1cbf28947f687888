package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/world"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerMetrics(t *testing.T) {
	t.Parallel()

	reg, err := procedure.NewRegistry(procedure.MustNew("metered",
		procedure.Do("a", func(*procedure.Env) error { return nil }),
		procedure.Wait(time.Second),
		procedure.Act(world.NewAction("pulse")),
	))
	require.NoError(t, err)

	fake := clock.FromSeconds(0.5)

	s, err := New(reg, world.NewDummy(fake), WithClock(fake), WithName("metrics_scheduler"))
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), "metered"))

	assert.InDelta(t, 3, testutil.ToFloat64(statementsTotal.WithLabelValues("metrics_scheduler", "metered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(waitsTotal.WithLabelValues("metrics_scheduler", "metered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(worldActionsTotal.WithLabelValues("metrics_scheduler", "pulse")), 0)
	assert.InDelta(t, 1,
		testutil.ToFloat64(stateRunsTotal.WithLabelValues("metrics_scheduler", "metered", outcomeCompleted)), 0)

	stats := s.Stats()
	assert.InDelta(t, float64(stats.Updates),
		testutil.ToFloat64(decisionsTotal.WithLabelValues("metrics_scheduler", RunWorldUpdate.String())), 0)
}
