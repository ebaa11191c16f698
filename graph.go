package taskgraph

import "fmt"

// Graph is a named convenience wrapper around a terminal Node, letting a
// caller hand the whole subgraph around and schedule/cancel/render it
// without threading the terminal task's type everywhere. The finalizer,
// clone engine, and scheduler themselves all operate on any Node directly
// (node.go/task.go) — Graph just gives them a name. Its Edges can be passed
// to DOT, which does not include the graph's name.
//
// Grounded on gotaskflow's eGraph (graph.go): a name plus the set of
// nodes reachable from it, generalized from its fixed join-counter/entries
// bookkeeping (now owned by base/Node itself) to a thin named handle.
type Graph struct {
	name     string
	terminal Node
}

// NewGraph names terminal for use in logging and error messages.
func NewGraph(name string, terminal Node) *Graph {
	return &Graph{name: name, terminal: terminal}
}

func (g *Graph) Name() string { return g.name }

func (g *Graph) Terminal() Node { return g.terminal }

func (g *Graph) Tasks() []Node { return g.terminal.Tasks() }

func (g *Graph) Edges() []Edge { return g.terminal.Edges() }

func (g *Graph) ScheduleAll() error                  { return g.terminal.ScheduleAll() }
func (g *Graph) ScheduleAllWith(exec Executor) error { return g.terminal.ScheduleAllWith(exec) }
func (g *Graph) ScheduleAllReset(exec Executor, resetAll bool) error {
	return g.terminal.ScheduleAllReset(exec, resetAll)
}

func (g *Graph) CancelAll(enabled bool) { g.terminal.CancelAll(enabled) }

func (g *Graph) ResetAll() error { return g.terminal.ResetAll() }

func (g *Graph) String() string {
	return fmt.Sprintf("graph %q (%d tasks)", g.name, len(g.Tasks()))
}
