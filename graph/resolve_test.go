package graph

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// buildResolveGraph creates: source -> current, with the source carrying a
// recorded output.
func buildResolveGraph(t *testing.T, output any) *Graph {
	t.Helper()
	g := New()
	src := NewNode("source", InputConfig{Value: output}).WithName("Source").WithLabel("SRC")
	require.NoError(t, g.AddNode(src))
	require.NoError(t, g.AddNode(NewNode("current", OutputConfig{})))
	require.NoError(t, g.Connect("source", "current"))
	src.result = output
	src.executed = true
	return g
}

func TestResolveVariables_Input(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, "hello world")

	got := ResolveVariables("say: {{input}}", "current", g, g.OutputSnapshot())
	assert.Equal(t, "say: hello world", got)
}

func TestResolveVariables_InputStructuredSerializes(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, map[string]any{"title": "Go"})

	got := ResolveVariables("{{input}}", "current", g, g.OutputSnapshot())
	assert.JSONEq(t, `{"title":"Go"}`, got)
}

func TestResolveVariables_ByIDNameAndLabel(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, "payload")
	snapshot := g.OutputSnapshot()

	assert.Equal(t, "payload", ResolveVariables("{{source}}", "current", g, snapshot))
	assert.Equal(t, "payload", ResolveVariables("{{Source}}", "current", g, snapshot))
	// Case-insensitive fallback on the label.
	assert.Equal(t, "payload", ResolveVariables("{{src}}", "current", g, snapshot))
}

func TestResolveVariables_Property(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, map[string]any{"title": "Go rocks", "count": 3})
	snapshot := g.OutputSnapshot()

	assert.Equal(t, "Go rocks", ResolveVariables("{{source.title}}", "current", g, snapshot))
	assert.Equal(t, "3", ResolveVariables("{{source.count}}", "current", g, snapshot))
	// Reserved property: the whole output, serialized.
	assert.JSONEq(t, `{"title":"Go rocks","count":3}`,
		ResolveVariables("{{source.data}}", "current", g, snapshot))
	// Missing property stays verbatim.
	assert.Equal(t, "{{source.nope}}", ResolveVariables("{{source.nope}}", "current", g, snapshot))
}

func TestResolveVariables_UnresolvedLeftVerbatim(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, "x")

	template := "keep {{unknown}} and {{another.prop}} intact"
	got := ResolveVariables(template, "current", g, g.OutputSnapshot())
	assert.Equal(t, template, got)
}

func TestResolveVariables_InputWithoutUpstream(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.AddNode(NewNode("lonely", OutputConfig{})))

	got := ResolveVariables("{{input}}", "lonely", g, g.OutputSnapshot())
	assert.Equal(t, "{{input}}", got)
}

func TestResolveVariables_NodeWithoutRecordedOutput(t *testing.T) {
	t.Parallel()
	g := New()
	require.NoError(t, g.AddNode(NewNode("pending", InputConfig{Value: "v"})))

	// The node exists but has not executed; the placeholder survives.
	got := ResolveVariables("{{pending}}", "pending", g, g.OutputSnapshot())
	assert.Equal(t, "{{pending}}", got)
}

// Resolution over templates whose placeholders match nothing is the
// identity function: no throw, no partial substitution.
func TestResolveVariables_IdentityOnUnmatchedPlaceholders(t *testing.T) {
	t.Parallel()
	g := buildResolveGraph(t, "irrelevant")
	snapshot := g.OutputSnapshot()

	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(
			rapid.StringMatching(`[A-Za-z_][A-Za-z0-9_]{0,8}`).
				Filter(func(s string) bool {
					for _, taken := range []string{"input", "source", "src"} {
						if strings.EqualFold(s, taken) {
							return false
						}
					}
					return true
				}),
			1, 5,
		).Draw(t, "names")

		template := ""
		for i, name := range names {
			template += fmt.Sprintf("part%d {{%s}} ", i, name)
		}

		got := ResolveVariables(template, "current", g, snapshot)
		if got != template {
			t.Fatalf("expected identity, got %q from %q", got, template)
		}
	})
}

func TestStringify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "plain", Stringify("plain"))
	assert.Equal(t, "42", Stringify(42))
	assert.Equal(t, "3.5", Stringify(3.5))
	assert.Equal(t, "true", Stringify(true))
	assert.JSONEq(t, `["a","b"]`, Stringify([]string{"a", "b"}))
	assert.JSONEq(t, `{"k":"v"}`, Stringify(map[string]any{"k": "v"}))
}
