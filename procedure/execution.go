package procedure

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Status is the outcome of one Advance call.
type Status int

const (
	Suspended Status = iota
	Completed
)

func (s Status) String() string {
	if s == Completed {
		return "completed"
	}

	return "suspended"
}

// NoStatement is reported as StepResult.Statement when an Advance call
// completed the run without executing anything.
const NoStatement = -1

// StepResult describes one Advance call.
type StepResult struct {
	Status Status
	// Position counts the statements executed before this one in the run.
	Position int
	// Statement is the static boundary index that ran, or NoStatement.
	Statement int
	// Label of the statement that ran.
	Label string
	// Successor is the next state name. Empty means none.
	Successor string
}

// Executed reports whether this step ran a statement.
func (r StepResult) Executed() bool {
	return r.Statement != NoStatement
}

// HasSuccessor reports whether the step completed with a named successor.
func (r StepResult) HasSuccessor() bool {
	return r.Status == Completed && r.Successor != ""
}

type frame struct {
	stmts []*Statement
	pc    int

	// loop bookkeeping for the header at pc
	looping bool
	iter    int

	// iteration of the enclosing loop seen by statements in this frame
	loopIndex int
}

// Execution is one run of a Definition, suspendable between statements.
// It is not safe for concurrent use.
type Execution struct {
	def    *Definition
	handle Handle
	runID  uuid.UUID
	scope  *Scope

	stack    []*frame
	position int
	done     bool
	failed   error
	result   StepResult
}

// Start creates an execution of def at position 0. A nil handle gets an
// empty view and discards waits and actions.
func Start(def *Definition, handle Handle) *Execution {
	if handle == nil {
		handle = nopHandle{}
	}

	runID := uuid.New()

	return &Execution{
		def:    def,
		handle: handle,
		runID:  runID,
		scope:  NewScope(runID.String(), def.name),
		stack:  []*frame{{stmts: def.body, loopIndex: -1}},
	}
}

func (e *Execution) Definition() *Definition {
	return e.def
}

func (e *Execution) RunID() uuid.UUID {
	return e.runID
}

func (e *Execution) Scope() *Scope {
	return e.scope
}

// Position returns the number of statements executed so far.
func (e *Execution) Position() int {
	return e.position
}

// Done reports whether the execution has completed.
func (e *Execution) Done() bool {
	return e.done
}

// Err returns the statement error that ended the run, if any.
func (e *Execution) Err() error {
	return e.failed
}

// Result returns the final StepResult of a completed run.
func (e *Execution) Result() (StepResult, bool) {
	return e.result, e.done
}

// Advance runs exactly the next statement. When the body is exhausted the
// call executes nothing and reports Completed with no successor.
func (e *Execution) Advance(ctx context.Context) (StepResult, error) {
	if e.done {
		return e.result, fmt.Errorf("%w: %s", ErrAlreadyCompleted, e.def.name)
	}

	stmt, fr := e.next()
	if stmt == nil {
		return e.finish(StepResult{
			Status:    Completed,
			Position:  e.position,
			Statement: NoStatement,
		}), nil
	}

	res := StepResult{
		Status:    Suspended,
		Position:  e.position,
		Statement: e.def.index[stmt],
		Label:     stmt.label,
	}

	e.position++
	e.scope.appendTrail(res.Statement)

	env := &Env{ctx: ctx, exec: e, view: e.handle.View(), loopIndex: fr.loopIndex}

	if err := e.exec(env, stmt, fr, &res); err != nil {
		e.failed = &StatementError{State: e.def.name, Statement: res.Statement, Label: stmt.label, Err: err}
		res.Status = Completed
		e.finish(res)

		return res, e.failed
	}

	if res.Status == Completed {
		return e.finish(res), nil
	}

	return res, nil
}

// next pops exhausted frames and returns the statement to run with the
// frame that owns it.
func (e *Execution) next() (*Statement, *frame) {
	for len(e.stack) > 0 {
		top := e.stack[len(e.stack)-1]
		if top.pc < len(top.stmts) {
			return top.stmts[top.pc], top
		}

		e.stack = e.stack[:len(e.stack)-1]
	}

	return nil, nil
}

func (e *Execution) exec(env *Env, stmt *Statement, fr *frame, res *StepResult) error {
	switch stmt.kind {
	case KindDo:
		fr.pc++

		return stmt.fn(env)
	case KindWait:
		fr.pc++
		e.handle.RequestWait(stmt.wait)
	case KindAct:
		fr.pc++

		return e.handle.Act(env.ctx, stmt.act(env))
	case KindIf:
		fr.pc++

		branch := stmt.orElse
		if stmt.cond(env) {
			branch = stmt.body
		}

		if len(branch) > 0 {
			e.stack = append(e.stack, &frame{stmts: branch, loopIndex: fr.loopIndex})
		}
	case KindWhile, KindRepeat:
		e.loop(env, stmt, fr)
	case KindExit:
		fr.pc++
		res.Status = Completed
		res.Successor = stmt.exitTo

		if stmt.exitFn != nil {
			res.Successor = stmt.exitFn(env)
		}
	}

	return nil
}

// loop evaluates a loop header. The owning frame keeps pointing at the
// header while the body runs, so the header is evaluated again once the
// body frame is exhausted.
func (e *Execution) loop(env *Env, stmt *Statement, fr *frame) {
	if fr.looping {
		fr.iter++
	} else {
		fr.looping = true
		fr.iter = 0
	}

	env.loopIndex = fr.iter

	var again bool
	if stmt.kind == KindRepeat {
		again = fr.iter < stmt.count
	} else {
		again = stmt.cond(env)
	}

	if !again {
		fr.looping = false
		fr.iter = 0
		fr.pc++

		return
	}

	e.stack = append(e.stack, &frame{stmts: stmt.body, loopIndex: fr.iter})
}

func (e *Execution) finish(res StepResult) StepResult {
	e.done = true
	e.result = res
	e.stack = nil

	return res
}
