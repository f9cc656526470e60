package automaton

// Graph is a plain-data snapshot of an automaton's structure, used by
// renderers and the CLI. Both the model and its compiled form produce one.
type Graph struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one state of a Graph.
type Node struct {
	Name      string   `json:"name"`
	Actions   []string `json:"actions,omitempty"`
	Modifiers Modifier `json:"modifiers"`
	Spawns    []string `json:"spawns,omitempty"`
	Synthetic bool     `json:"synthetic,omitempty"`
}

// Edge is one transition of a Graph. From and To index Nodes.
type Edge struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Predicate string `json:"predicate,omitempty"`
	Deadline  int    `json:"deadline"`
}

// NodeOf describes a state for a Graph.
func NodeOf[C any](s *State[C]) Node {
	n := Node{Name: s.Name, Modifiers: s.Modifiers}
	for _, act := range s.Actions {
		n.Actions = append(n.Actions, act.Type())
	}
	for _, d := range s.Spawns {
		n.Spawns = append(n.Spawns, d.Automaton)
	}
	return n
}

// Graph returns the structure of the model. Transitions to undeclared
// states are skipped.
func (a *Automaton[C]) Graph() Graph {
	g := Graph{Name: a.name}
	for _, s := range a.states {
		g.Nodes = append(g.Nodes, NodeOf(s))
	}
	for from, s := range a.states {
		for _, t := range a.transitions[s] {
			to, ok := a.index[t.To]
			if !ok {
				continue
			}
			e := Edge{From: from, To: to, Deadline: t.Deadline}
			if t.Predicate != nil {
				e.Predicate = t.Predicate.Type()
			}
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}
