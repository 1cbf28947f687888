package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/imperative/logger"
)

// Observer receives machine lifecycle notifications. Observers only watch;
// they cannot veto or alter a transition.
type Observer interface {
	StateEntered(ctx context.Context, machine, state string)
	StateExited(ctx context.Context, machine, state string, err error)
	TransitionExecuted(ctx context.Context, machine, from, to string)
	MachineCompleted(ctx context.Context, machine, last string)
}

// DefaultObserver logs through slog.
type DefaultObserver struct {
	logger *slog.Logger
}

// NewDefaultObserver logs with l, or with the context logger when l is nil.
func NewDefaultObserver(l *slog.Logger) *DefaultObserver {
	return &DefaultObserver{logger: l}
}

func (o *DefaultObserver) log(ctx context.Context) *slog.Logger {
	if o.logger != nil {
		return o.logger
	}

	return logger.Get(ctx)
}

func (o *DefaultObserver) StateEntered(ctx context.Context, machine, state string) {
	o.log(ctx).DebugContext(ctx, "State entered", "machine", machine, "state", state)
}

func (o *DefaultObserver) StateExited(ctx context.Context, machine, state string, err error) {
	if err != nil {
		o.log(ctx).ErrorContext(ctx, "State exited with error", "machine", machine, "state", state, "error", err)

		return
	}

	o.log(ctx).DebugContext(ctx, "State exited", "machine", machine, "state", state)
}

func (o *DefaultObserver) TransitionExecuted(ctx context.Context, machine, from, to string) {
	o.log(ctx).InfoContext(ctx, "Transition executed", "machine", machine, "from", from, "to", to)
}

func (o *DefaultObserver) MachineCompleted(ctx context.Context, machine, last string) {
	o.log(ctx).InfoContext(ctx, "StateMachine complete", "machine", machine, "last_state", last)
}

type observers []Observer

func (obs observers) entered(ctx context.Context, machine, state string) {
	for _, o := range obs {
		o.StateEntered(ctx, machine, state)
	}
}

func (obs observers) exited(ctx context.Context, machine, state string, err error) {
	for _, o := range obs {
		o.StateExited(ctx, machine, state, err)
	}
}

func (obs observers) transitioned(ctx context.Context, machine, from, to string) {
	for _, o := range obs {
		o.TransitionExecuted(ctx, machine, from, to)
	}
}

func (obs observers) completed(ctx context.Context, machine, last string) {
	for _, o := range obs {
		o.MachineCompleted(ctx, machine, last)
	}
}
