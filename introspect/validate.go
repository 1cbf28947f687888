package introspect

import (
	"fmt"
	"unicode"
)

// Severity of a validation finding.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Finding is one issue reported by a Rule.
type Finding struct {
	Code     string
	Message  string
	State    string
	Severity Severity
}

// Result collects the findings of a validation pass. Since successor
// declarations are advisory, a failing Result is a hint for authors and
// never blocks execution.
type Result struct {
	Valid    bool
	Errors   []Finding
	Warnings []Finding
}

// Rule checks a graph for one kind of issue.
type Rule interface {
	Name() string
	Check(g Graph) []Finding
}

// DefaultRules returns the standard rule set.
func DefaultRules() []Rule {
	return []Rule{
		unknownSuccessorRule{},
		unreachableStateRule{},
		noTerminalRule{},
		namingConventionRule{},
	}
}

// Validate runs DefaultRules over g.
func Validate(g Graph) Result {
	return ValidateWithRules(g, DefaultRules())
}

// ValidateWithRules runs rules over g.
func ValidateWithRules(g Graph, rules []Rule) Result {
	res := Result{Valid: true}

	for _, rule := range rules {
		for _, f := range rule.Check(g) {
			if f.Severity == SeverityWarning {
				res.Warnings = append(res.Warnings, f)
			} else {
				res.Errors = append(res.Errors, f)
			}
		}
	}

	res.Valid = len(res.Errors) == 0

	return res
}

type unknownSuccessorRule struct{}

func (unknownSuccessorRule) Name() string {
	return "UnknownSuccessor"
}

func (unknownSuccessorRule) Check(g Graph) []Finding {
	var out []Finding

	for _, node := range g.Nodes {
		for _, next := range node.Successors {
			if !g.Has(next) {
				out = append(out, Finding{
					Code:     "UNKNOWN_SUCCESSOR",
					Message:  fmt.Sprintf("State '%s' declares successor '%s' which does not exist", node.Name, next),
					State:    node.Name,
					Severity: SeverityError,
				})
			}
		}
	}

	return out
}

type unreachableStateRule struct{}

func (unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (unreachableStateRule) Check(g Graph) []Finding {
	edges := g.Edges()
	reachable := map[string]bool{g.Initial: true}

	queue := []string{g.Initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range edges[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	var out []Finding

	for _, node := range g.Nodes {
		if !reachable[node.Name] {
			out = append(out, Finding{
				Code:     "UNREACHABLE_STATE",
				Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", node.Name, g.Initial),
				State:    node.Name,
				Severity: SeverityWarning,
			})
		}
	}

	return out
}

type noTerminalRule struct{}

func (noTerminalRule) Name() string {
	return "NoTerminalState"
}

func (noTerminalRule) Check(g Graph) []Finding {
	for _, node := range g.Nodes {
		if node.Terminal {
			return nil
		}
	}

	return []Finding{{
		Code:     "NO_TERMINAL_STATE",
		Message:  "No state completes without a successor; the chain runs until cancelled",
		Severity: SeverityWarning,
	}}
}

type namingConventionRule struct{}

func (namingConventionRule) Name() string {
	return "NamingConvention"
}

func (namingConventionRule) Check(g Graph) []Finding {
	var out []Finding

	for _, node := range g.Nodes {
		if !isSnakeCase(node.Name) {
			out = append(out, Finding{
				Code:     "NAMING_CONVENTION",
				Message:  fmt.Sprintf("State '%s' should use snake_case naming", node.Name),
				State:    node.Name,
				Severity: SeverityWarning,
			})
		}
	}

	return out
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) || r == '-' || r == ' ' {
			return false
		}
	}

	return true
}
