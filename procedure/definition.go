// Package procedure turns a sequential control procedure into a resumable
// computation with one observable suspension point per statement.
//
// A body is an explicit tree of statements built with Do, Wait, Act, If,
// While, Repeat and the Exit family. Start returns an Execution that runs
// exactly one statement per Advance call.
package procedure

import (
	"fmt"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/imperative/introspect"
	"github.com/zeebo/xxh3"
)

// Boundary is one entry of a definition's static statement listing.
type Boundary struct {
	Index int
	Depth int
	Label string
	Kind  Kind
}

// Definition is an immutable, named procedure body. Many executions may
// share one Definition.
type Definition struct {
	name        string
	description string
	source      string

	body       []*Statement
	boundaries []Boundary
	index      map[*Statement]int

	successors  []string
	fingerprint uint64
}

// Option configures a Definition.
type Option func(*Definition)

// WithSource attaches a textual listing of the procedure. Its return lines
// are scanned for advisory successor names.
func WithSource(src string) Option {
	return func(d *Definition) {
		d.source = src
	}
}

// WithDescription attaches a human readable description.
func WithDescription(desc string) Option {
	return func(d *Definition) {
		d.description = desc
	}
}

// New builds a Definition from body.
func New(name string, body ...*Statement) (*Definition, error) {
	return NewWithOptions(name, nil, body...)
}

// NewWithOptions builds a Definition from body with options applied.
func NewWithOptions(name string, opts []Option, body ...*Statement) (*Definition, error) {
	if strings.TrimSpace(name) == "" {
		return nil, malformed("state name is empty")
	}

	def := &Definition{
		name:  name,
		body:  body,
		index: make(map[*Statement]int),
	}

	for _, opt := range opts {
		opt(def)
	}

	if err := def.walk(body, 0); err != nil {
		return nil, fmt.Errorf("state %s: %w", name, err)
	}

	def.successors = def.collectSuccessors()
	def.fingerprint = def.computeFingerprint()

	return def, nil
}

// MustNew is New that panics on error. Meant for package-level definitions.
func MustNew(name string, body ...*Statement) *Definition {
	def, err := New(name, body...)
	if err != nil {
		panic(err)
	}

	return def
}

func (d *Definition) walk(stmts []*Statement, depth int) error {
	for _, stmt := range stmts {
		if err := d.check(stmt); err != nil {
			return err
		}

		d.index[stmt] = len(d.boundaries)
		d.boundaries = append(d.boundaries, Boundary{
			Index: len(d.boundaries),
			Depth: depth,
			Label: stmt.label,
			Kind:  stmt.kind,
		})

		if err := d.walk(stmt.body, depth+1); err != nil {
			return err
		}

		if err := d.walk(stmt.orElse, depth+1); err != nil {
			return err
		}
	}

	return nil
}

func (d *Definition) check(stmt *Statement) error {
	if stmt == nil {
		return malformed("nil statement at boundary %d", len(d.boundaries))
	}

	if _, seen := d.index[stmt]; seen {
		return malformed("statement %q appears twice", stmt.label)
	}

	if stmt.misuse != "" {
		return malformed("%s", stmt.misuse)
	}

	switch stmt.kind {
	case KindDo:
		if stmt.fn == nil {
			return malformed("statement %q has no function", stmt.label)
		}
	case KindAct:
		if stmt.act == nil {
			return malformed("action %q has no builder", stmt.label)
		}
	case KindIf, KindWhile:
		if stmt.cond == nil {
			return malformed("%s %q has no condition", stmt.kind, stmt.label)
		}
	case KindRepeat:
		if stmt.count < 0 {
			return malformed("repeat %q has negative count %d", stmt.label, stmt.count)
		}
	case KindWait:
		if stmt.wait < 0 {
			return malformed("negative wait %s", stmt.wait)
		}
	case KindExit:
	}

	return nil
}

func (d *Definition) collectSuccessors() []string {
	seen := make(map[string]struct{})

	for stmt := range d.index {
		if stmt.exitTo != "" {
			seen[stmt.exitTo] = struct{}{}
		}
	}

	if d.source != "" {
		for _, ex := range introspect.ScanExits(d.source) {
			if ex.Target != "" {
				seen[ex.Target] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}

	natsort.Sort(out)

	return out
}

func (d *Definition) computeFingerprint() uint64 {
	var sb strings.Builder

	sb.WriteString(d.name)
	sb.WriteByte('\n')

	for _, b := range d.boundaries {
		fmt.Fprintf(&sb, "%d:%s:%s\n", b.Depth, b.Kind, b.Label)
	}

	return xxh3.HashString(sb.String())
}

// Name returns the definition name.
func (d *Definition) Name() string {
	return d.name
}

func (d *Definition) Description() string {
	return d.description
}

// Source returns the listing attached with WithSource, if any.
func (d *Definition) Source() string {
	return d.source
}

// StatementCount returns the number of statement boundaries in the body.
func (d *Definition) StatementCount() int {
	return len(d.boundaries)
}

// Statements returns the static boundary listing in pre-order.
func (d *Definition) Statements() []Boundary {
	return slices.Clone(d.boundaries)
}

// DeclaredSuccessors returns the advisory successor names found in ExitTo
// statements and in the attached source listing. Execution never reads it.
func (d *Definition) DeclaredSuccessors() []string {
	return slices.Clone(d.successors)
}

// Fingerprint hashes the statement layout. Two definitions with the same
// name and layout share a fingerprint.
func (d *Definition) Fingerprint() uint64 {
	return d.fingerprint
}

func (d *Definition) String() string {
	return fmt.Sprintf("procedure(%s, %d statements)", d.name, len(d.boundaries))
}
