package taskgraph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/taskgraph"
)

func TestNodeString_OmitsNameWhenUnset(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })
	require.NoError(t, task.Schedule())

	s := taskgraph.NodeString(task, " ")
	assert.NotContains(t, s, "<")
	assert.Contains(t, s, taskgraph.KindRoot.String())
}

func TestNodeString_IncludesNameWhenSet(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil }, taskgraph.WithName("fetch"))

	s := taskgraph.NodeString(task, " ")
	assert.Contains(t, s, "<fetch>")
}

func TestNodeString_OmitsUnsampledAverages(t *testing.T) {
	task := taskgraph.Root(func() (int, error) { return 1, nil })

	s := taskgraph.NodeString(task, " ")
	assert.NotContains(t, s, "avg-idle-us=")
	assert.NotContains(t, s, "avg-wait-us=")
	assert.NotContains(t, s, "avg-run-us=")
}

func TestNodeString_IncludesExecutorName(t *testing.T) {
	exec := taskgraph.NewSequential()
	task := taskgraph.Root(func() (int, error) { return 1, nil }, taskgraph.WithExecutor(exec))

	s := taskgraph.NodeString(task, " ")
	assert.Contains(t, s, "<"+exec.Name()+">")
}

func TestEdgeString_JoinsParentAndChild(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 1, nil }, taskgraph.WithName("root"))
	child := taskgraph.ThenConsume(root, func(v int) (int, error) { return v, nil })

	edges := child.Edges()
	require.Len(t, edges, 1)

	s := taskgraph.EdgeString(edges[0], " ")
	assert.Contains(t, s, "->")
	assert.True(t, strings.Index(s, "<root>") < strings.Index(s, "->"))
}

func TestDOT_WrapsEdgesInDigraphBlock(t *testing.T) {
	root := taskgraph.Root(func() (int, error) { return 1, nil })
	child := taskgraph.ThenConsume(root, func(v int) (int, error) { return v, nil })

	out := taskgraph.DOT(child.Edges())
	assert.True(t, strings.HasPrefix(out, "digraph {\n"))
	assert.True(t, strings.HasSuffix(out, "}"))
}

func TestDOT_EmptyEdgesProducesEmptyBody(t *testing.T) {
	out := taskgraph.DOT(nil)
	assert.Equal(t, "digraph {\n}", out)
}
