package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_decisions_total",
		Help: "Total number of scheduling instants by scheduler and decision",
	}, []string{"scheduler", "decision"})

	statementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_statements_total",
		Help: "Total number of executed statements by scheduler and state",
	}, []string{"scheduler", "state"})

	waitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_waits_total",
		Help: "Total number of wait requests by scheduler and state",
	}, []string{"scheduler", "state"})

	worldActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_world_actions_total",
		Help: "Total number of world actions by scheduler and action",
	}, []string{"scheduler", "action"})

	// sleepSeconds tracks pacing sleeps; long tails mean long waits between ticks.
	sleepSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_sleep_seconds",
		Help:    "Duration of pacing sleeps by scheduler",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 60},
	}, []string{"scheduler"})

	stateRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_state_runs_total",
		Help: "Total number of state executions by scheduler, state and outcome",
	}, []string{"scheduler", "state", "outcome"})
)

const (
	outcomeStarted   = "started"
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeAbandoned = "abandoned"
)
