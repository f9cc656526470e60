// Package render draws automata as Graphviz DOT.
//
// States are record nodes listing their actions. Initial states are drawn
// with diagonals, urgent states bold, terminating states red, and the
// states cursors currently occupy are filled. Edges carry the predicate as
// label and the deadline as tail label; time-driven edges are dashed.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/engine"
)

// InfinitySymbol labels edges without deadline.
const InfinitySymbol = "+oo"

// Cluster is one automaton drawn inside a DOTAll graph. Active is the
// index of the highlighted node, or -1.
type Cluster struct {
	Label  string
	Graph  automaton.Graph
	Active int
}

// DOT renders a single graph. active lists highlighted node indices.
func DOT(g automaton.Graph, active ...int) string {
	var b strings.Builder
	header(&b, g.Name)
	body(&b, g, "", set(active))
	b.WriteString("}\n")
	return b.String()
}

// DOTAll renders several graphs as clusters of one digraph.
func DOTAll(name string, clusters []Cluster) string {
	var b strings.Builder
	header(&b, name)
	for i, c := range clusters {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", i)
		label := c.Label
		if label == "" {
			label = c.Graph.Name
		}
		fmt.Fprintf(&b, "    label=%s;\n", quote(label))
		body(&b, c.Graph, fmt.Sprintf("_%d", i), set([]int{c.Active}))
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// Cursors returns one cluster per live cursor, highlighting the link the
// cursor is in.
func Cursors[C any](cursors []engine.CursorView[C]) []Cluster {
	out := make([]Cluster, 0, len(cursors))
	for _, cur := range cursors {
		label := cur.Automaton().Name()
		if cur.Key() != "" {
			label += " [" + cur.Key() + "]"
		}
		out = append(out, Cluster{Label: label, Graph: cur.Automaton().Graph(), Active: cur.Link()})
	}
	return out
}

func header(b *strings.Builder, name string) {
	if name == "" {
		name = "G"
	}
	fmt.Fprintf(b, "digraph %s {\n", quote(name))
	b.WriteString("  edge [splines=ortho];\n")
}

func set(xs []int) map[int]bool {
	m := make(map[int]bool, len(xs))
	for _, x := range xs {
		if x >= 0 {
			m[x] = true
		}
	}
	return m
}

func nodeID(offset string, i int) string {
	return "node" + offset + "_" + strconv.Itoa(i)
}

func body(b *strings.Builder, g automaton.Graph, offset string, active map[int]bool) {
	for i, n := range g.Nodes {
		fmt.Fprintf(b, "  %s [%s];\n", nodeID(offset, i), nodeAttrs(n, active[i]))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(b, "  %s -> %s [%s];\n", nodeID(offset, e.From), nodeID(offset, e.To), edgeAttrs(e))
	}
}

func nodeAttrs(n automaton.Node, active bool) string {
	actions := make([]string, len(n.Actions))
	for i, a := range n.Actions {
		actions[i] = escapeRecord(a)
	}
	label := "{" + escapeRecord(n.Name) + "|{" + strings.Join(actions, "|") + "}}"

	style := []string{"filled"}
	if n.Modifiers.Has(automaton.Initial) {
		style = append(style, "diagonals")
	}
	if n.Modifiers.Has(automaton.Urgent) {
		style = append(style, "bold")
	}
	if n.Synthetic {
		style = append(style, "dotted")
	}

	attrs := []string{
		`shape="record"`,
		"label=" + quote(label),
		"style=" + quote(strings.Join(style, ",")),
	}
	if n.Modifiers.Has(automaton.Terminate) {
		attrs = append(attrs, `color="red"`)
	}
	fill := "white"
	if active {
		fill = "lightgreen"
	}
	attrs = append(attrs, "fillcolor="+quote(fill))
	return strings.Join(attrs, ", ")
}

func edgeAttrs(e automaton.Edge) string {
	var attrs []string
	if e.Predicate != "" {
		attrs = append(attrs, "label="+quote(e.Predicate))
	}
	tail := InfinitySymbol
	if e.Deadline != automaton.Infinite {
		tail = strconv.Itoa(e.Deadline)
	}
	attrs = append(attrs, "taillabel="+quote(tail))
	if e.Predicate == "" {
		attrs = append(attrs, "style=dashed")
	}
	return strings.Join(attrs, ", ")
}

// escapeRecord escapes the characters that structure record labels.
func escapeRecord(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`{}|<>`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quote makes a DOT string literal. Backslashes are kept for the record
// parser.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
