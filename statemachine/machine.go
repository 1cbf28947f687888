package statemachine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/amp-labs/imperative/world"
	"go.opentelemetry.io/otel/codes"
)

// Machine is an ordered set of named states with exactly one current state.
// The current state changes only through a ChangeState command, and every
// transition runs OnExit of the old state then OnEnter of the new one.
//
// Machine satisfies State, so machines nest.
type Machine struct {
	name    string
	states  []State
	byName  map[string]State
	current State

	completions map[string]string
	onComplete  []func(ctx context.Context, view world.View)
	observers   observers
	resume      bool
}

var _ State = (*Machine)(nil)

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithCompletionTransition maps Complete from child to ChangeState(next),
// which is how an enclosing machine continues after a nested one finishes.
func WithCompletionTransition(child, next string) MachineOption {
	return func(m *Machine) {
		m.completions[child] = next
	}
}

// WithOnComplete registers a hook run when the machine completes.
func WithOnComplete(fn func(ctx context.Context, view world.View)) MachineOption {
	return func(m *Machine) {
		m.onComplete = append(m.onComplete, fn)
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) MachineOption {
	return func(m *Machine) {
		m.observers = append(m.observers, o)
	}
}

// WithLogger attaches a DefaultObserver logging to l.
func WithLogger(l *slog.Logger) MachineOption {
	return WithObserver(NewDefaultObserver(l))
}

// WithResume keeps the current state across OnExit/OnEnter of the machine
// itself. By default entering a machine restarts it at its first state.
func WithResume() MachineOption {
	return func(m *Machine) {
		m.resume = true
	}
}

// NewMachine builds a machine whose current state is states[0]. State
// names must be unique; construction fails otherwise and no machine is
// returned.
func NewMachine(name string, states []State, opts ...MachineOption) (*Machine, error) {
	if name == "" {
		return nil, ErrStateNameRequired
	}

	if len(states) == 0 {
		return nil, fmt.Errorf("machine %s: %w", name, ErrNoStates)
	}

	m := &Machine{
		name:        name,
		states:      slices.Clone(states),
		byName:      make(map[string]State, len(states)),
		completions: make(map[string]string),
	}

	for i, st := range states {
		if st == nil {
			return nil, fmt.Errorf("machine %s: state %d: %w", name, i, ErrNilState)
		}

		if _, dup := m.byName[st.Name()]; dup {
			return nil, fmt.Errorf("machine %s: %w: %s", name, ErrDuplicateStateName, st.Name())
		}

		m.byName[st.Name()] = st
	}

	for _, opt := range opts {
		opt(m)
	}

	for child, next := range m.completions {
		if _, ok := m.byName[child]; !ok {
			return nil, fmt.Errorf("machine %s: completion of %w %q", name, ErrUnknownState, child)
		}

		if _, ok := m.byName[next]; !ok {
			return nil, fmt.Errorf("machine %s: completion target %w %q", name, ErrUnknownState, next)
		}
	}

	m.current = m.states[0]

	return m, nil
}

func (m *Machine) Name() string {
	return m.name
}

// Names returns state names in declaration order.
func (m *Machine) Names() []string {
	out := make([]string, len(m.states))
	for i, st := range m.states {
		out[i] = st.Name()
	}

	return out
}

// Len returns the number of states.
func (m *Machine) Len() int {
	return len(m.byName)
}

// Current returns the active state.
func (m *Machine) Current() State { //nolint:ireturn
	return m.current
}

// Lookup returns the state called name.
func (m *Machine) Lookup(name string) (State, bool) { //nolint:ireturn
	st, ok := m.byName[name]

	return st, ok
}

// Path returns the names of the active states from this machine down
// through any nested machines.
func (m *Machine) Path() []string {
	path := []string{m.name}

	cur := m.current
	for {
		nested, ok := cur.(*Machine)
		if !ok {
			return append(path, cur.Name())
		}

		path = append(path, nested.name)
		cur = nested.current
	}
}

// Send delegates to the current state and interprets its command.
// ChangeState is absorbed (nil is returned). Complete is mapped through a
// completion transition when one is configured for the current state,
// otherwise the completion hooks run and Complete is returned upward.
// Anything else is returned unchanged.
func (m *Machine) Send(ctx context.Context, view world.View) (Command, error) { //nolint:ireturn
	cur := m.current

	cmd, err := cur.Send(ctx, view)
	if err != nil {
		return nil, WrapStateError(cur.Name(), err)
	}

	switch c := cmd.(type) {
	case ChangeState:
		return nil, m.transition(ctx, view, c.Next)
	case Complete:
		if next, ok := m.completions[cur.Name()]; ok {
			return nil, m.transition(ctx, view, next)
		}

		m.complete(ctx, view)

		return c, nil
	default:
		return cmd, nil
	}
}

func (m *Machine) transition(ctx context.Context, view world.View, to string) error {
	from := m.current.Name()

	next, ok := m.byName[to]
	if !ok {
		return WrapTransitionError(m.name, from, to, fmt.Errorf("%w: %q", ErrUnknownState, to))
	}

	ctx, span := startTransitionSpan(ctx, m.name, from, to)
	defer span.End()

	err := m.current.OnExit(ctx, view)
	m.observers.exited(ctx, m.name, from, err)
	stateVisitsTotal.WithLabelValues(m.name, from, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return WrapTransitionError(m.name, from, to, WrapStateError(from, err))
	}

	// The new state is current as soon as its OnEnter starts, so a failed
	// entry is still paired with an exit.
	m.current = next

	err = next.OnEnter(ctx, view)
	m.observers.entered(ctx, m.name, to)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return WrapTransitionError(m.name, from, to, WrapStateError(to, err))
	}

	transitionTotal.WithLabelValues(m.name, from, to).Inc()
	m.observers.transitioned(ctx, m.name, from, to)
	span.SetStatus(codes.Ok, "transitioned")

	return nil
}

func (m *Machine) complete(ctx context.Context, view world.View) {
	completionsTotal.WithLabelValues(m.name).Inc()
	m.observers.completed(ctx, m.name, m.current.Name())

	for _, fn := range m.onComplete {
		fn(ctx, view)
	}
}

// OnEnter enters the machine's current state, restarting at the first
// state unless WithResume was given.
func (m *Machine) OnEnter(ctx context.Context, view world.View) error {
	if !m.resume {
		m.current = m.states[0]
	}

	err := m.current.OnEnter(ctx, view)
	m.observers.entered(ctx, m.name, m.current.Name())

	return WrapStateError(m.current.Name(), err)
}

// OnExit exits the machine's current state.
func (m *Machine) OnExit(ctx context.Context, view world.View) error {
	err := m.current.OnExit(ctx, view)
	m.observers.exited(ctx, m.name, m.current.Name(), err)
	stateVisitsTotal.WithLabelValues(m.name, m.current.Name(), outcome(err)).Inc()

	return WrapStateError(m.current.Name(), err)
}

func (m *Machine) String() string {
	return fmt.Sprintf("machine(%s, current=%s)", m.name, m.current.Name())
}
