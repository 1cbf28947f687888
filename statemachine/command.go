package statemachine

import (
	"fmt"

	"github.com/amp-labs/imperative/world"
)

// Command is what a State returns from Send. The set of commands is closed:
// ChangeState, WorldAction and Complete. A nil Command means nothing to do.
type Command interface {
	command()
	fmt.Stringer
}

// ChangeState asks the enclosing machine to transition to Next.
type ChangeState struct {
	Next string
}

// WorldAction asks the runner to perform Action on the world.
type WorldAction struct {
	Action world.Action
}

// Complete reports that a state (or a whole machine) has finished.
type Complete struct{}

func (ChangeState) command() {}
func (WorldAction) command() {}
func (Complete) command()    {}

func (c ChangeState) String() string {
	return "change_state(" + c.Next + ")"
}

func (c WorldAction) String() string {
	return "world_action(" + c.Action.Name + ")"
}

func (Complete) String() string {
	return "complete"
}

// CommandName returns a short name for cmd, "none" for nil. Used as a
// metric and log label.
func CommandName(cmd Command) string {
	switch cmd.(type) {
	case nil:
		return "none"
	case ChangeState:
		return "change_state"
	case WorldAction:
		return "world_action"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}
