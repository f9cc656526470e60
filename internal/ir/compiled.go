package ir

import (
	"fmt"

	"github.com/roach88/tima/internal/automaton"
)

// NoTimeout marks a state without a timeout in TimeoutDeadline and
// TimeoutTarget.
const NoTimeout = -1

// Guard is one predicate-guarded exit of a compiled state.
type Guard struct {
	Predicate int `json:"predicate"`
	Target    int `json:"target"`
}

// Compiled is the executable form of an automaton.
//
// States form an arena addressed by index; every per-state slice has the
// same length as States. Indices below UserStates are the declared states
// in declaration order, the rest are synthetic links created for deadline
// bands. Origin maps every state to the declared state it belongs to.
//
// A Compiled value is immutable and may be shared by any number of cursors.
type Compiled[C any] struct {
	name            string
	states          []*automaton.State[C]
	synthetic       []bool
	origin          []int
	predicates      []automaton.Predicate[C]
	guarded         [][]Guard
	timeoutDeadline []int
	timeoutTarget   []int
	initial         int
	userStates      int
}

// Tables is the raw array form accepted by New.
type Tables[C any] struct {
	Name            string
	States          []*automaton.State[C]
	Synthetic       []bool
	Origin          []int
	Predicates      []automaton.Predicate[C]
	Guarded         [][]Guard
	TimeoutDeadline []int
	TimeoutTarget   []int
	Initial         int
	UserStates      int
}

// New checks the array invariants and returns the compiled automaton.
func New[C any](t Tables[C]) (*Compiled[C], error) {
	n := len(t.States)
	for _, tbl := range []struct {
		name string
		len  int
	}{
		{"synthetic", len(t.Synthetic)},
		{"origin", len(t.Origin)},
		{"guarded", len(t.Guarded)},
		{"timeout deadline", len(t.TimeoutDeadline)},
		{"timeout target", len(t.TimeoutTarget)},
	} {
		if tbl.len != n {
			return nil, fmt.Errorf("compiled %q: %s table has %d entries, want %d", t.Name, tbl.name, tbl.len, n)
		}
	}
	if t.Initial < 0 || t.Initial >= n {
		return nil, fmt.Errorf("compiled %q: initial state %d out of range", t.Name, t.Initial)
	}
	if t.UserStates < 0 || t.UserStates > n {
		return nil, fmt.Errorf("compiled %q: %d user states out of %d", t.Name, t.UserStates, n)
	}
	for i := 0; i < n; i++ {
		if t.Origin[i] < 0 || t.Origin[i] >= t.UserStates {
			return nil, fmt.Errorf("compiled %q: state %d has origin %d", t.Name, i, t.Origin[i])
		}
		if t.TimeoutDeadline[i] == NoTimeout && t.TimeoutTarget[i] != NoTimeout {
			return nil, fmt.Errorf("compiled %q: state %d has a timeout target without deadline", t.Name, i)
		}
		if t.TimeoutDeadline[i] != NoTimeout && (t.TimeoutTarget[i] < 0 || t.TimeoutTarget[i] >= n) {
			return nil, fmt.Errorf("compiled %q: state %d timeout target %d out of range", t.Name, i, t.TimeoutTarget[i])
		}
		for _, g := range t.Guarded[i] {
			if g.Target < 0 || g.Target >= n || g.Predicate < 0 || g.Predicate >= len(t.Predicates) {
				return nil, fmt.Errorf("compiled %q: state %d has guard %+v out of range", t.Name, i, g)
			}
		}
	}
	return &Compiled[C]{
		name:            t.Name,
		states:          t.States,
		synthetic:       t.Synthetic,
		origin:          t.Origin,
		predicates:      t.Predicates,
		guarded:         t.Guarded,
		timeoutDeadline: t.TimeoutDeadline,
		timeoutTarget:   t.TimeoutTarget,
		initial:         t.Initial,
		userStates:      t.UserStates,
	}, nil
}

// Name returns the automaton name.
func (c *Compiled[C]) Name() string { return c.name }

// Len returns the number of states, synthetic links included.
func (c *Compiled[C]) Len() int { return len(c.states) }

// Initial returns the index of the initial state.
func (c *Compiled[C]) Initial() int { return c.initial }

// UserStates returns the number of declared states.
func (c *Compiled[C]) UserStates() int { return c.userStates }

// State returns the state record at index i.
func (c *Compiled[C]) State(i int) *automaton.State[C] { return c.states[i] }

// Synthetic reports whether i is a link created for a deadline band.
func (c *Compiled[C]) Synthetic(i int) bool { return c.synthetic[i] }

// Origin returns the declared state index i belongs to.
func (c *Compiled[C]) Origin(i int) int { return c.origin[i] }

// Guards returns the guarded exits of i in evaluation order. The slice
// must not be modified.
func (c *Compiled[C]) Guards(i int) []Guard { return c.guarded[i] }

// PredicateAt returns the predicate with table index p.
func (c *Compiled[C]) PredicateAt(p int) automaton.Predicate[C] { return c.predicates[p] }

// Predicates returns the number of distinct predicates.
func (c *Compiled[C]) Predicates() int { return len(c.predicates) }

// TimeoutOf returns the timeout deadline and target of i, or NoTimeout twice.
func (c *Compiled[C]) TimeoutOf(i int) (deadline, target int) {
	return c.timeoutDeadline[i], c.timeoutTarget[i]
}

// InRange reports whether i is a valid state index.
func (c *Compiled[C]) InRange(i int) bool { return i >= 0 && i < len(c.states) }

// StateNames returns the state names in index order.
func (c *Compiled[C]) StateNames() []string {
	names := make([]string, len(c.states))
	for i, s := range c.states {
		names[i] = s.Name
	}
	return names
}

// Followers returns the distinct successor indices of i, guards first.
func (c *Compiled[C]) Followers(i int) []int {
	var out []int
	seen := make(map[int]bool)
	add := func(t int) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, g := range c.guarded[i] {
		add(g.Target)
	}
	if c.timeoutDeadline[i] != NoTimeout {
		add(c.timeoutTarget[i])
	}
	return out
}

// Predicate returns the predicate guarding src -> dst, or nil.
func (c *Compiled[C]) Predicate(src, dst int) automaton.Predicate[C] {
	for _, g := range c.guarded[src] {
		if g.Target == dst {
			return c.predicates[g.Predicate]
		}
	}
	return nil
}

// Timeout returns the deadline of the timeout src -> dst, or NoTimeout.
func (c *Compiled[C]) Timeout(src, dst int) int {
	if c.timeoutDeadline[src] != NoTimeout && c.timeoutTarget[src] == dst {
		return c.timeoutDeadline[src]
	}
	return NoTimeout
}

// Graph returns the compiled structure. Timeout edges carry their delta as
// Deadline; guard edges carry automaton.Infinite.
func (c *Compiled[C]) Graph() automaton.Graph {
	g := automaton.Graph{Name: c.name}
	for i, s := range c.states {
		n := automaton.NodeOf(s)
		n.Synthetic = c.synthetic[i]
		g.Nodes = append(g.Nodes, n)
	}
	for i := range c.states {
		for _, gd := range c.guarded[i] {
			g.Edges = append(g.Edges, automaton.Edge{
				From:      i,
				To:        gd.Target,
				Predicate: c.predicates[gd.Predicate].Type(),
				Deadline:  automaton.Infinite,
			})
		}
		if c.timeoutDeadline[i] != NoTimeout {
			g.Edges = append(g.Edges, automaton.Edge{
				From:     i,
				To:       c.timeoutTarget[i],
				Deadline: c.timeoutDeadline[i],
			})
		}
	}
	return g
}
