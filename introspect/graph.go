package introspect

import "facette.io/natsort"

// Describer is anything that can name itself and its advisory successors.
// Procedure definitions satisfy it.
type Describer interface {
	Name() string
	DeclaredSuccessors() []string
}

// Node is one state in a Graph.
type Node struct {
	Name       string
	Successors []string
	// Terminal marks a state that may complete with no successor.
	Terminal bool
}

// Graph is the declared transition structure of a set of states.
type Graph struct {
	Initial string
	Nodes   []Node
}

// FromDescribers builds a Graph. A state with no declared successors is
// marked terminal.
func FromDescribers(initial string, states ...Describer) Graph {
	g := Graph{Initial: initial}

	for _, st := range states {
		succ := st.DeclaredSuccessors()
		natsort.Sort(succ)

		g.Nodes = append(g.Nodes, Node{
			Name:       st.Name(),
			Successors: succ,
			Terminal:   len(succ) == 0,
		})
	}

	return g
}

// Edges returns an adjacency map.
func (g Graph) Edges() map[string][]string {
	edges := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		edges[n.Name] = append(edges[n.Name], n.Successors...)
	}

	return edges
}

// Has reports whether a node named name exists.
func (g Graph) Has(name string) bool {
	for _, n := range g.Nodes {
		if n.Name == name {
			return true
		}
	}

	return false
}
