// Package introspect holds best-effort tooling over procedure definitions:
// textual exit scanning, diagrams and advisory validation. Nothing here is
// consulted while a procedure runs.
package introspect

import (
	"regexp"
	"strconv"
	"strings"
)

// Exit is one return point found in a source listing.
type Exit struct {
	Line int
	// Expr is the text after "return", empty for a bare return.
	Expr string
	// Target is the successor name Expr resolved to, or empty when the
	// return is bare or the expression is not a simple name.
	Target string
}

// Bare reports whether the return carries no value.
func (e Exit) Bare() bool {
	return e.Expr == ""
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ScanExits finds lines that start with "return" and records what follows.
// Quoted literals are unquoted and dotted names keep their last element.
// Multi-line or compound expressions are kept in Expr but get no Target.
// It never fails.
func ScanExits(source string) []Exit {
	var exits []Exit

	for i, line := range strings.Split(source, "\n") {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "return") {
			continue
		}

		rest := strings.TrimPrefix(stripped, "return")
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// returned, return_value and friends
			continue
		}

		expr := strings.TrimSpace(stripComment(rest))
		exits = append(exits, Exit{Line: i + 1, Expr: expr, Target: resolve(expr)})
	}

	return exits
}

// Targets returns the resolved successor names of exits, in order, with
// duplicates removed.
func Targets(exits []Exit) []string {
	seen := make(map[string]bool)

	var out []string

	for _, ex := range exits {
		if ex.Target == "" || seen[ex.Target] {
			continue
		}

		seen[ex.Target] = true
		out = append(out, ex.Target)
	}

	return out
}

func resolve(expr string) string {
	switch {
	case expr == "", expr == "nil", expr == "None":
		return ""
	case strings.HasPrefix(expr, `"`), strings.HasPrefix(expr, "`"), strings.HasPrefix(expr, "'"):
		if strings.HasPrefix(expr, "'") && len(expr) >= 2 && strings.HasSuffix(expr, "'") {
			return expr[1 : len(expr)-1]
		}

		name, err := strconv.Unquote(expr)
		if err != nil {
			return ""
		}

		return name
	case identifier.MatchString(expr):
		return expr[strings.LastIndex(expr, ".")+1:]
	default:
		return ""
	}
}

// stripComment drops a trailing // or # comment. Markers inside a leading
// quoted literal are kept.
func stripComment(s string) string {
	trimmed := strings.TrimLeft(s, " \t")
	from := len(s) - len(trimmed) + literalEnd(trimmed)
	cut := len(s)

	for _, marker := range []string{"//", "#"} {
		if idx := strings.Index(s[from:], marker); idx >= 0 {
			cut = min(cut, from+idx)
		}
	}

	return s[:cut]
}

// literalEnd returns the length of the quoted literal s starts with, or 0
// when s does not start with a terminated literal.
func literalEnd(s string) int {
	if s == "" || !strings.ContainsRune("\"'`", rune(s[0])) {
		return 0
	}

	quote := s[0]

	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '\\' && quote != '`':
			i++
		case s[i] == quote:
			return i + 1
		}
	}

	return 0
}
