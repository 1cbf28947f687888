package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fizzSource = `func fizz() {
	for i := 0; i < 4; i++ {
		if coin() {
			return "blah"
		}
		return foo // always taken
	}
	returned := 1
	return
}`

func TestScanExits(t *testing.T) {
	t.Parallel()

	exits := ScanExits(fizzSource)
	require.Len(t, exits, 3)

	assert.Equal(t, "blah", exits[0].Target)
	assert.Equal(t, 4, exits[0].Line)
	assert.Equal(t, "foo", exits[1].Target)
	assert.True(t, exits[2].Bare())
	assert.Empty(t, exits[2].Target)

	assert.Equal(t, []string{"blah", "foo"}, Targets(exits))
}

func TestScanExitsUnresolvable(t *testing.T) {
	t.Parallel()

	exits := ScanExits("return pick(a,\n  b)\nreturn x + y\nreturn states.Soak\nreturn 'ramp_up'")
	require.Len(t, exits, 4)

	assert.Empty(t, exits[0].Target)
	assert.Empty(t, exits[1].Target)
	assert.Equal(t, "Soak", exits[2].Target)
	assert.Equal(t, "ramp_up", exits[3].Target)
}

func TestScanExitsCommentMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want string
	}{
		{`return "stage#2"`, "stage#2"},
		{`return "a//b" // next stage`, "a//b"},
		{`return 'x#y' # python style`, "x#y"},
		{"return `raw//name`", "raw//name"},
		{`return "esc\"#q" # c`, `esc"#q`},
		{`return soak # hold`, "soak"},
		{`return "open_loop`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()

			exits := ScanExits(tt.line)
			require.Len(t, exits, 1)
			assert.Equal(t, tt.want, exits[0].Target)
		})
	}
}

func TestScanExitsEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ScanExits(""))
	assert.Empty(t, ScanExits("x := 1\n// return later"))
}

func testGraph() Graph {
	return Graph{
		Initial: "open_loop",
		Nodes: []Node{
			{Name: "open_loop", Successors: []string{"ramp_up"}},
			{Name: "ramp_up", Successors: []string{"soak"}},
			{Name: "soak", Terminal: true},
		},
	}
}

func TestMermaid(t *testing.T) {
	t.Parallel()

	out, err := MermaidWithOptions(testGraph(), DefaultOptions().WithHighlightPath([]string{"ramp_up"}))
	require.NoError(t, err)

	assert.Contains(t, out, "stateDiagram-TD")
	assert.Contains(t, out, "[*] --> open_loop")
	assert.Contains(t, out, "open_loop --> ramp_up")
	assert.Contains(t, out, "class ramp_up highlighted")
	assert.Contains(t, out, "soak --> [*]")
}

func TestMermaidErrors(t *testing.T) {
	t.Parallel()

	_, err := Mermaid(Graph{Initial: "x"})
	require.ErrorIs(t, err, ErrEmptyGraph)

	_, err = Mermaid(Graph{Nodes: []Node{{Name: "x"}}})
	require.ErrorIs(t, err, ErrNoInitialState)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	res := Validate(testGraph())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)

	g := testGraph()
	g.Nodes = append(g.Nodes, Node{Name: "TempControl", Successors: []string{"missing"}})

	res = Validate(g)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "UNKNOWN_SUCCESSOR", res.Errors[0].Code)

	codes := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		codes = append(codes, w.Code)
	}

	assert.ElementsMatch(t, []string{"UNREACHABLE_STATE", "NAMING_CONVENTION"}, codes)
}

type describer struct {
	name string
	succ []string
}

func (d describer) Name() string                 { return d.name }
func (d describer) DeclaredSuccessors() []string { return d.succ }

func TestFromDescribers(t *testing.T) {
	t.Parallel()

	g := FromDescribers("a", describer{"a", []string{"c10", "c2"}}, describer{name: "c2"})
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, []string{"c2", "c10"}, g.Nodes[0].Successors)
	assert.False(t, g.Nodes[0].Terminal)
	assert.True(t, g.Nodes[1].Terminal)
}
