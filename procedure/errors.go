package procedure

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBody is returned when a body cannot be decomposed into
	// statement boundaries.
	ErrMalformedBody = errors.New("malformed procedure body")
	// ErrAlreadyCompleted is returned by Advance on a finished execution.
	ErrAlreadyCompleted = errors.New("execution already completed")
	// ErrDuplicateStateName is returned when two definitions share a name.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrUnknownState is returned when a successor names no registered definition.
	ErrUnknownState = errors.New("unknown state")
)

// StatementError wraps an error raised by a statement function.
type StatementError struct {
	State     string
	Statement int
	Label     string
	Err       error
}

func (e *StatementError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("state %s statement %d: %v", e.State, e.Statement, e.Err)
	}

	return fmt.Sprintf("state %s statement %d (%s): %v", e.State, e.Statement, e.Label, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedBody, fmt.Sprintf(format, args...))
}
