package procedure

import (
	"time"

	"github.com/amp-labs/imperative/world"
)

// Kind classifies a statement boundary.
type Kind int

const (
	KindDo Kind = iota
	KindWait
	KindAct
	KindIf
	KindWhile
	KindRepeat
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindDo:
		return "do"
	case KindWait:
		return "wait"
	case KindAct:
		return "act"
	case KindIf:
		return "if"
	case KindWhile:
		return "while"
	case KindRepeat:
		return "repeat"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Statement is one step of a procedure body. Headers (If, While, Repeat)
// are one boundary each; the statements they contain are further
// boundaries one level deeper.
type Statement struct {
	kind  Kind
	label string

	fn     func(*Env) error
	cond   func(*Env) bool
	act    func(*Env) world.Action
	exitFn func(*Env) string

	wait   time.Duration
	count  int
	exitTo string

	body   []*Statement
	orElse []*Statement

	// set when Else is attached to something that is not an If
	misuse string
}

// Kind returns the statement kind.
func (s *Statement) Kind() Kind {
	return s.kind
}

// Label returns the statement label.
func (s *Statement) Label() string {
	return s.label
}

// Do is a plain statement.
func Do(label string, fn func(*Env) error) *Statement {
	return &Statement{kind: KindDo, label: label, fn: fn}
}

// Wait requests that the next statement not run before d has elapsed.
// The request does not itself suspend; the runtime honors it at the next
// scheduling instant.
func Wait(d time.Duration) *Statement {
	return &Statement{kind: KindWait, label: "wait " + d.String(), wait: d}
}

// Act issues a fixed world action.
func Act(action world.Action) *Statement {
	return &Statement{
		kind:  KindAct,
		label: action.Name,
		act: func(*Env) world.Action {
			return action
		},
	}
}

// ActWith issues a world action built from the current view.
func ActWith(label string, fn func(*Env) world.Action) *Statement {
	return &Statement{kind: KindAct, label: label, act: fn}
}

// If runs then when cond holds. Attach an alternative with Else.
func If(label string, cond func(*Env) bool, then ...*Statement) *Statement {
	return &Statement{kind: KindIf, label: label, cond: cond, body: then}
}

// Else attaches the alternative branch of an If.
func (s *Statement) Else(stmts ...*Statement) *Statement {
	if s.kind != KindIf {
		s.misuse = "else attached to " + s.kind.String()

		return s
	}

	s.orElse = stmts

	return s
}

// While runs body for as long as cond holds. The header is evaluated before
// every iteration, including the final failing check.
func While(label string, cond func(*Env) bool, body ...*Statement) *Statement {
	return &Statement{kind: KindWhile, label: label, cond: cond, body: body}
}

// Repeat runs body n times. Env.LoopIndex reports the iteration.
func Repeat(label string, n int, body ...*Statement) *Statement {
	return &Statement{kind: KindRepeat, label: label, count: n, body: body}
}

// Exit completes the execution with no successor.
func Exit() *Statement {
	return &Statement{kind: KindExit, label: "exit"}
}

// ExitTo completes the execution naming next as the successor.
func ExitTo(next string) *Statement {
	return &Statement{kind: KindExit, label: "exit " + next, exitTo: next}
}

// ExitWith completes the execution with a successor chosen at run time.
// An empty name means no successor.
func ExitWith(label string, fn func(*Env) string) *Statement {
	return &Statement{kind: KindExit, label: label, exitFn: fn}
}
