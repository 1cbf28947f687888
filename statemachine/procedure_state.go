package statemachine

import (
	"context"
	"time"

	"github.com/amp-labs/imperative/clock"
	"github.com/amp-labs/imperative/diagnostics"
	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/world"
)

// ProcedureState runs a procedure definition as a State, one statement per
// Send. A wait requested by a statement holds back the following statement
// until the clock passes the deadline. World actions issued by statements
// are returned as WorldAction commands, one per Send, and completion
// becomes ChangeState(successor) or Complete once they are delivered.
type ProcedureState struct {
	def     *procedure.Definition
	name    string
	machine string
	clock   clock.Clock
	sink    diagnostics.Sink

	exec    *procedure.Execution
	view    world.View
	queue   []Command
	final   Command
	started time.Time
	runs    int

	deadline time.Time
	waiting  bool
}

var _ State = (*ProcedureState)(nil)

// ProcedureOption configures a ProcedureState.
type ProcedureOption func(*ProcedureState)

// WithProcedureClock sets the clock used for waits.
func WithProcedureClock(c clock.Clock) ProcedureOption {
	return func(p *ProcedureState) {
		p.clock = c
	}
}

// WithSink reports every executed statement to s.
func WithSink(s diagnostics.Sink) ProcedureOption {
	return func(p *ProcedureState) {
		p.sink = s
	}
}

// WithStateName overrides the state name, which defaults to the
// definition name.
func WithStateName(name string) ProcedureOption {
	return func(p *ProcedureState) {
		p.name = name
	}
}

// WithMachineLabel sets the machine name reported in diagnostics events.
func WithMachineLabel(machine string) ProcedureOption {
	return func(p *ProcedureState) {
		p.machine = machine
	}
}

// NewProcedureState adapts def to State.
func NewProcedureState(def *procedure.Definition, opts ...ProcedureOption) *ProcedureState {
	p := &ProcedureState{
		def:   def,
		name:  def.Name(),
		clock: clock.Real{},
		sink:  diagnostics.Nop{},
	}

	for _, opt := range opts {
		opt(p)
	}

	p.sink = diagnostics.OrNop(p.sink)

	return p
}

func (p *ProcedureState) Name() string {
	return p.name
}

// Definition returns the adapted definition.
func (p *ProcedureState) Definition() *procedure.Definition {
	return p.def
}

// Execution returns the active execution, nil outside of a run.
func (p *ProcedureState) Execution() *procedure.Execution {
	return p.exec
}

// Runs returns how many executions were started.
func (p *ProcedureState) Runs() int {
	return p.runs
}

// OnEnter starts a fresh execution.
func (p *ProcedureState) OnEnter(_ context.Context, view world.View) error {
	p.view = view
	p.start()

	return nil
}

// OnExit abandons the active execution.
func (p *ProcedureState) OnExit(context.Context, world.View) error {
	p.exec = nil
	p.queue = nil
	p.waiting = false

	return nil
}

func (p *ProcedureState) Send(ctx context.Context, view world.View) (Command, error) { //nolint:ireturn
	p.view = view

	if p.exec == nil {
		p.start()
	}

	if len(p.queue) > 0 {
		return p.pop(), nil
	}

	if p.final != nil {
		return p.final, nil
	}

	if p.waiting && p.clock.Now().Before(p.deadline) {
		return nil, nil
	}

	p.waiting = false

	res, err := p.exec.Advance(ctx)
	if res.Executed() {
		p.report(ctx, res)
	}

	if err != nil {
		return nil, err
	}

	if res.Status == procedure.Completed {
		if res.Successor != "" {
			p.final = ChangeState{Next: res.Successor}
		} else {
			p.final = Complete{}
		}

		p.queue = append(p.queue, p.final)
	}

	if len(p.queue) > 0 {
		return p.pop(), nil
	}

	return nil, nil
}

func (p *ProcedureState) start() {
	p.exec = procedure.Start(p.def, procedureHandle{p})
	p.queue = nil
	p.final = nil
	p.waiting = false
	p.started = p.clock.Now()
	p.runs++
}

func (p *ProcedureState) pop() Command { //nolint:ireturn
	cmd := p.queue[0]
	p.queue = p.queue[1:]

	return cmd
}

func (p *ProcedureState) report(ctx context.Context, res procedure.StepResult) {
	now := p.clock.Now()

	p.sink.Record(ctx, diagnostics.Event{
		RunID:       p.exec.RunID().String(),
		Machine:     p.machine,
		State:       p.name,
		Position:    res.Position,
		Statement:   res.Statement,
		Label:       res.Label,
		Fingerprint: p.def.Fingerprint(),
		Elapsed:     now.Sub(p.started),
		View:        p.view,
		At:          now,
		Successor:   res.Successor,
		Completed:   res.Status == procedure.Completed,
	})
}

// procedureHandle is what the execution sees of its state.
type procedureHandle struct {
	p *ProcedureState
}

func (h procedureHandle) View() world.View {
	return h.p.view
}

func (h procedureHandle) RequestWait(d time.Duration) {
	h.p.deadline = h.p.clock.Now().Add(d)
	h.p.waiting = true
}

func (h procedureHandle) Act(_ context.Context, action world.Action) error {
	h.p.queue = append(h.p.queue, WorldAction{Action: action})

	return nil
}
