package introspect

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoInitialState = errors.New("graph must have an initial state")
	ErrEmptyGraph     = errors.New("graph has no nodes")
)

// Options configures Mermaid output.
type Options struct {
	// Direction is "TD" (top-down) or "LR" (left-right).
	Direction string
	// HighlightPath highlights states, typically the ones a run visited.
	HighlightPath []string
	// Fenced wraps the diagram in a markdown code fence.
	Fenced bool
}

// DefaultOptions returns top-down, fenced output.
func DefaultOptions() Options {
	return Options{Direction: "TD", Fenced: true}
}

func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// Mermaid renders g as a Mermaid state diagram.
func Mermaid(g Graph) (string, error) {
	return MermaidWithOptions(g, DefaultOptions())
}

// MermaidWithOptions renders g with custom options.
func MermaidWithOptions(g Graph, opts Options) (string, error) {
	if len(g.Nodes) == 0 {
		return "", ErrEmptyGraph
	}

	if g.Initial == "" {
		return "", ErrNoInitialState
	}

	if opts.Direction == "" {
		opts.Direction = "TD"
	}

	highlight := make(map[string]bool, len(opts.HighlightPath))
	for _, name := range opts.HighlightPath {
		highlight[name] = true
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	fmt.Fprintf(&sb, "stateDiagram-%s\n", opts.Direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", g.Initial)

	for _, node := range g.Nodes {
		switch {
		case highlight[node.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", node.Name)
		case node.Terminal:
			fmt.Fprintf(&sb, "    class %s finalState\n", node.Name)
		}

		for _, next := range node.Successors {
			fmt.Fprintf(&sb, "    %s --> %s\n", node.Name, next)
		}

		if node.Terminal {
			fmt.Fprintf(&sb, "    %s --> [*]\n", node.Name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}
