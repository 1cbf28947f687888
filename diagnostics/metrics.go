package diagnostics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diagnostics_events_total",
		Help: "Total number of statement events by state",
	}, []string{"state"})

	runElapsed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diagnostics_run_elapsed_seconds",
		Help:    "Elapsed time since run start at each executed statement, by state",
		Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"state"})

	viewValue = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "diagnostics_view_value",
		Help: "Last observed numeric world view value by key",
	}, []string{"key"})
)

// MetricsSink exports events as Prometheus metrics. Numeric view values
// named in Gauges are published as diagnostics_view_value.
type MetricsSink struct {
	Gauges []string
}

func (s MetricsSink) Record(_ context.Context, ev Event) {
	eventsTotal.WithLabelValues(ev.State).Inc()
	runElapsed.WithLabelValues(ev.State).Observe(ev.Elapsed.Seconds())

	for _, key := range s.Gauges {
		if v, ok := ev.View.Float(key); ok {
			viewValue.WithLabelValues(key).Set(v)
		}
	}
}
