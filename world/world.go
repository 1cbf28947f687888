// Package world defines the interface between the control runtime and the
// controlled environment (instruments and actuators). The runtime owns the
// World for mutation; states only ever see a View.
package world

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownAction is returned by Do for an action a world does not implement.
	ErrUnknownAction = errors.New("unknown world action")
	// ErrInvalidAction is returned by Do for an action with bad parameters.
	ErrInvalidAction = errors.New("invalid world action")
)

// World is the external collaborator polled by the scheduler and runner.
type World interface {
	// Update polls instruments. Called once per tick.
	Update(ctx context.Context) error
	// UpdateWithElapsed integrates the time passed since the previous poll.
	UpdateWithElapsed(ctx context.Context, elapsed time.Duration) error
	// View returns an immutable snapshot of the current world state.
	View() View
	// Do executes an actuator command.
	Do(ctx context.Context, action Action) error
	OnEnter(ctx context.Context) error
	OnExit(ctx context.Context) error
}

// Action is the payload of a world action command.
type Action struct {
	Name   string
	Params map[string]any
}

// NewAction builds an Action from alternating key/value pairs. Non-string
// keys are ignored.
func NewAction(name string, kv ...any) Action {
	params := make(map[string]any, len(kv)/2) //nolint:mnd

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}

		params[key] = kv[i+1]
	}

	return Action{Name: name, Params: params}
}

// Float returns a numeric parameter as float64.
func (a Action) Float(key string) (float64, bool) {
	return toFloat(a.Params[key])
}

// Bool returns a boolean parameter.
func (a Action) Bool(key string) (bool, bool) {
	b, ok := a.Params[key].(bool)

	return b, ok
}

func (a Action) String() string {
	return "action(" + a.Name + ")"
}
