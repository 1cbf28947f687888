package procedure

import (
	"context"
	"time"

	"github.com/amp-labs/imperative/world"
)

// Handle is what a runtime lends to an execution: a read-only view of the
// world, a way to request a timed wait and a way to issue world actions.
type Handle interface {
	View() world.View
	RequestWait(d time.Duration)
	Act(ctx context.Context, action world.Action) error
}

// Env is passed to statement functions and conditions.
type Env struct {
	ctx       context.Context //nolint:containedctx
	exec      *Execution
	view      world.View
	loopIndex int
}

// View returns the world snapshot taken for this statement.
func (e *Env) View() world.View {
	return e.view
}

// Wait requests that the next statement not run before d has elapsed.
func (e *Env) Wait(d time.Duration) {
	e.exec.handle.RequestWait(d)
}

// Act issues a world action immediately.
func (e *Env) Act(action world.Action) error {
	return e.exec.handle.Act(e.ctx, action)
}

// Scope returns the per-run scratch data.
func (e *Env) Scope() *Scope {
	return e.exec.scope
}

// LoopIndex returns the iteration of the innermost enclosing loop, or -1
// outside of any loop.
func (e *Env) LoopIndex() int {
	return e.loopIndex
}

func (e *Env) Context() context.Context {
	return e.ctx
}

type nopHandle struct{}

func (nopHandle) View() world.View {
	return world.View{}
}

func (nopHandle) RequestWait(time.Duration) {}

func (nopHandle) Act(context.Context, world.Action) error {
	return nil
}
