package statemachine

import (
	"context"
	"fmt"

	"github.com/amp-labs/imperative/world"
)

// State is the capability shared by leaf states and machines, which is what
// lets a Machine appear among another machine's states.
type State interface {
	Name() string
	// Send is called once per iteration with a snapshot of the world.
	Send(ctx context.Context, view world.View) (Command, error)
	OnEnter(ctx context.Context, view world.View) error
	OnExit(ctx context.Context, view world.View) error
}

// CompleteTarget used as a Counter's next state makes it complete instead
// of transitioning.
const CompleteTarget = "Complete"

// Counter counts Send calls. After max silent sends it transitions to next,
// or completes when next is CompleteTarget. Entering resets the count.
type Counter struct {
	name  string
	next  string
	max   int
	count int

	timesEntered int
}

var _ State = (*Counter)(nil)

// NewCounter returns a counter state.
func NewCounter(name string, maxCount int, next string) *Counter {
	return &Counter{name: name, next: next, max: maxCount}
}

func (c *Counter) Name() string {
	return c.name
}

func (c *Counter) Send(context.Context, world.View) (Command, error) { //nolint:ireturn
	switch {
	case c.count == c.max:
		if c.next == CompleteTarget {
			return Complete{}, nil
		}

		return ChangeState{Next: c.next}, nil
	case c.count > c.max:
		return nil, fmt.Errorf("%w: count %d, max %d", ErrCounterOverrun, c.count, c.max)
	}

	c.count++

	return nil, nil
}

func (c *Counter) OnEnter(context.Context, world.View) error {
	c.timesEntered++
	c.count = 0

	return nil
}

func (c *Counter) OnExit(context.Context, world.View) error {
	return nil
}

// Count returns the sends counted since the last entry.
func (c *Counter) Count() int {
	return c.count
}

// TimesEntered returns how many times the state was entered.
func (c *Counter) TimesEntered() int {
	return c.timesEntered
}

// Idle never issues a command.
type Idle struct {
	name string
}

// NewIdle returns an idle state. An empty name defaults to "idle".
func NewIdle(name string) *Idle {
	if name == "" {
		name = "idle"
	}

	return &Idle{name: name}
}

func (i *Idle) Name() string {
	return i.name
}

func (*Idle) Send(context.Context, world.View) (Command, error) { //nolint:ireturn
	return nil, nil
}

func (*Idle) OnEnter(context.Context, world.View) error {
	return nil
}

func (*Idle) OnExit(context.Context, world.View) error {
	return nil
}
