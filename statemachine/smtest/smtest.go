// Package smtest provides recording states and assertions for testing
// state machines.
package smtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/amp-labs/imperative/statemachine"
	"github.com/amp-labs/imperative/world"
	"github.com/stretchr/testify/require"
)

// Phase of a recorded hook call.
type Phase string

const (
	Enter Phase = "enter"
	Exit  Phase = "exit"
	Send  Phase = "send"
)

// Entry is one recorded hook call.
type Entry struct {
	Phase Phase
	State string
}

func (e Entry) String() string {
	return string(e.Phase) + ":" + e.State
}

// Trace is an ordered log shared by any number of probes.
type Trace struct {
	mu      sync.Mutex
	entries []Entry
}

func (tr *Trace) add(phase Phase, state string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.entries = append(tr.entries, Entry{Phase: phase, State: state})
}

// Entries returns the recorded calls.
func (tr *Trace) Entries() []Entry {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]Entry, len(tr.entries))
	copy(out, tr.entries)

	return out
}

// Hooks returns the recorded enter and exit calls as "phase:state"
// strings, leaving out sends.
func (tr *Trace) Hooks() []string {
	var out []string

	for _, e := range tr.Entries() {
		if e.Phase != Send {
			out = append(out, e.String())
		}
	}

	return out
}

// Count returns how many calls of phase were recorded for state.
func (tr *Trace) Count(phase Phase, state string) int {
	n := 0

	for _, e := range tr.Entries() {
		if e.Phase == phase && e.State == state {
			n++
		}
	}

	return n
}

// Probe is a scripted state. Each Send returns the next scripted command;
// once the script is exhausted it keeps returning nil.
type Probe struct {
	name   string
	trace  *Trace
	script []statemachine.Command
	sent   int

	// EnterErr and ExitErr are returned by the hooks when set.
	EnterErr error
	ExitErr  error
	SendErr  error
}

var _ statemachine.State = (*Probe)(nil)

// NewProbe returns a probe recording into tr.
func NewProbe(name string, tr *Trace, script ...statemachine.Command) *Probe {
	return &Probe{name: name, trace: tr, script: script}
}

func (p *Probe) Name() string {
	return p.name
}

func (p *Probe) Send(context.Context, world.View) (statemachine.Command, error) { //nolint:ireturn
	p.trace.add(Send, p.name)

	if p.SendErr != nil {
		return nil, p.SendErr
	}

	if p.sent >= len(p.script) {
		return nil, nil
	}

	cmd := p.script[p.sent]
	p.sent++

	return cmd, nil
}

func (p *Probe) OnEnter(context.Context, world.View) error {
	p.trace.add(Enter, p.name)

	return p.EnterErr
}

func (p *Probe) OnExit(context.Context, world.View) error {
	p.trace.add(Exit, p.name)

	return p.ExitErr
}

// RequireSymmetric fails unless every state's enters and exits alternate,
// starting with an enter, and end balanced.
func RequireSymmetric(t *testing.T, tr *Trace) {
	t.Helper()

	open := make(map[string]bool)

	for i, e := range tr.Entries() {
		switch e.Phase {
		case Enter:
			require.False(t, open[e.State], "entry %d: %s entered twice without exit", i, e.State)
			open[e.State] = true
		case Exit:
			require.True(t, open[e.State], "entry %d: %s exited without enter", i, e.State)
			open[e.State] = false
		case Send:
		}
	}

	for state, isOpen := range open {
		require.False(t, isOpen, "%s entered but never exited", state)
	}
}

// RequireHooks fails unless the enter/exit calls match want, written as
// "enter:a exit:a enter:b".
func RequireHooks(t *testing.T, tr *Trace, want string) {
	t.Helper()

	require.Equal(t, strings.Fields(want), tr.Hooks(), fmt.Sprintf("hooks: %v", tr.Entries()))
}
