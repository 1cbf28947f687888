package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownState is returned when a ChangeState command names a state
	// the machine does not hold.
	ErrUnknownState = errors.New("unknown state")
	// ErrDuplicateStateName is returned when two states of a machine share a name.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrNoStates is returned when a machine is built without states.
	ErrNoStates = errors.New("at least one state is required")
	// ErrNilWorld is returned when a runner is built without a world.
	ErrNilWorld = errors.New("world is required")
	// ErrNilState is returned when a nil state is supplied.
	ErrNilState = errors.New("state is nil")
	// ErrUnhandledTransition is returned when the top state of a runner asks
	// for a transition no enclosing machine can absorb.
	ErrUnhandledTransition = errors.New("transition requested outside of a machine")
	// ErrCounterOverrun is returned by a Counter sent past its maximum.
	ErrCounterOverrun = errors.New("counter sent past its maximum")
	// ErrUnknownCommand is returned for a Command type the runner does not know.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidConfig indicates a machine configuration that cannot be built.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrConfigNameRequired indicates that a configuration name is required.
	ErrConfigNameRequired = errors.New("config name is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrUnknownStateType indicates that an unknown state type was encountered.
	ErrUnknownStateType = errors.New("unknown state type")
	// ErrNotInCatalog indicates a configured state that the catalog cannot supply.
	ErrNotInCatalog = errors.New("state not found in catalog")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	Machine string
	From    string
	To      string
	Err     error
}

func (e *TransitionError) Error() string {
	prefix := ""
	if e.Machine != "" {
		prefix = e.Machine + ": "
	}

	if e.To == "" {
		return fmt.Sprintf("%stransition from %s: %v", prefix, e.From, e.Err)
	}

	return fmt.Sprintf("%stransition %s -> %s: %v", prefix, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	var se *StateError
	if errors.As(err, &se) && se.State == state {
		return err
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(machine, from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		Machine: machine,
		From:    from,
		To:      to,
		Err:     err,
	}
}
