package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stateVisitsTotal tracks state exits by machine, state and outcome (success/error).
	stateVisitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_state_visits_total",
		Help: "Total number of state visits by machine, state, and outcome (success or error)",
	}, []string{"machine", "state", "outcome"})

	// transitionTotal tracks state transitions.
	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of state transitions by machine, from_state and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// completionsTotal tracks machine completions.
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_completions_total",
		Help: "Total number of machine completions by machine",
	}, []string{"machine"})

	// commandsTotal tracks commands surfacing at the runner.
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_runner_commands_total",
		Help: "Total number of commands seen by the runner, by machine and command",
	}, []string{"machine", "command"})

	// runDuration tracks end-to-end runner execution time.
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_run_duration_seconds",
		Help:    "Duration of runner execution by machine and outcome",
		Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
	}, []string{"machine", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}
