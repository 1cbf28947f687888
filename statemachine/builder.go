package statemachine

import (
	"context"
	"errors"

	"github.com/amp-labs/imperative/procedure"
	"github.com/amp-labs/imperative/world"
)

// Builder provides a fluent API for constructing (possibly nested) machines.
// Errors are collected and reported by Build.
type Builder struct {
	name   string
	states []State
	opts   []MachineOption
	errs   []error
}

// NewBuilder creates a new machine builder.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// AddState adds a state.
func (b *Builder) AddState(st State) *Builder {
	b.states = append(b.states, st)

	return b
}

// AddCounter adds a Counter state.
func (b *Builder) AddCounter(name string, maxCount int, next string) *Builder {
	return b.AddState(NewCounter(name, maxCount, next))
}

// AddIdle adds an Idle state.
func (b *Builder) AddIdle(name string) *Builder {
	return b.AddState(NewIdle(name))
}

// AddProcedure adds a procedure definition as a state.
func (b *Builder) AddProcedure(def *procedure.Definition, opts ...ProcedureOption) *Builder {
	return b.AddState(NewProcedureState(def, append([]ProcedureOption{WithMachineLabel(b.name)}, opts...)...))
}

// AddMachine builds child and adds it as a state.
func (b *Builder) AddMachine(child *Builder) *Builder {
	m, err := child.Build()
	if err != nil {
		b.errs = append(b.errs, err)

		return b
	}

	return b.AddState(m)
}

// OnChildComplete continues at next when child completes.
func (b *Builder) OnChildComplete(child, next string) *Builder {
	b.opts = append(b.opts, WithCompletionTransition(child, next))

	return b
}

// OnComplete registers a completion hook.
func (b *Builder) OnComplete(fn func(ctx context.Context, view world.View)) *Builder {
	b.opts = append(b.opts, WithOnComplete(fn))

	return b
}

// WithObserver attaches an observer.
func (b *Builder) WithObserver(o Observer) *Builder {
	b.opts = append(b.opts, WithObserver(o))

	return b
}

// WithOptions appends raw machine options.
func (b *Builder) WithOptions(opts ...MachineOption) *Builder {
	b.opts = append(b.opts, opts...)

	return b
}

// Build constructs the machine.
func (b *Builder) Build() (*Machine, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	return NewMachine(b.name, b.states, b.opts...)
}
