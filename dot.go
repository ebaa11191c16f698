package taskgraph

import (
	"strconv"
	"strings"
)

// NodeString renders a single task's identity and stats the same way the
// upstream library's to_string(itask) free function does: quoted, name
// prefix if set, kind, id, level, executor name, and any averages that have
// been sampled (a -1 sentinel average is omitted rather than printed).
//
// Grounded verbatim on transwarp.h::to_string(itask, separator) (lines
// 513-539).
func NodeString(task Node, separator string) string {
	var b strings.Builder
	b.WriteByte('"')
	if name := task.Name(); name != "" {
		b.WriteByte('<')
		b.WriteString(name)
		b.WriteByte('>')
		b.WriteString(separator)
	}
	b.WriteString(task.Kind().String())
	b.WriteString(" id=")
	b.WriteString(strconv.Itoa(task.ID()))
	b.WriteString(" lev=")
	b.WriteString(strconv.Itoa(task.Level()))
	if exec := task.Executor(); exec != nil {
		b.WriteString(separator)
		b.WriteByte('<')
		b.WriteString(exec.Name())
		b.WriteByte('>')
	}
	if us := task.AvgIdleUS(); us >= 0 {
		b.WriteString(separator)
		b.WriteString("avg-idle-us=")
		b.WriteString(strconv.FormatInt(us, 10))
	}
	if us := task.AvgWaitUS(); us >= 0 {
		b.WriteString(separator)
		b.WriteString("avg-wait-us=")
		b.WriteString(strconv.FormatInt(us, 10))
	}
	if us := task.AvgRunUS(); us >= 0 {
		b.WriteString(separator)
		b.WriteString("avg-run-us=")
		b.WriteString(strconv.FormatInt(us, 10))
	}
	b.WriteByte('"')
	return b.String()
}

// EdgeString renders a single edge as "<parent> -> <child>".
//
// Grounded verbatim on transwarp.h::to_string(edge, separator) (lines
// 544-548).
func EdgeString(edge Edge, separator string) string {
	return NodeString(edge.Parent, separator) + " -> " + NodeString(edge.Child, separator)
}

// DOT renders edges as a Graphviz "digraph" document, each edge followed by
// a newline. Node labels use "\n" as their field separator, so an edge
// whose labels have more than one field spans several lines.
//
// Grounded verbatim on transwarp.h::to_string(vector<edge>, separator)
// (lines 552-560).
func DOT(edges []Edge) string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for _, edge := range edges {
		b.WriteString(EdgeString(edge, "\n"))
		b.WriteByte('\n')
	}
	b.WriteByte('}')
	return b.String()
}
