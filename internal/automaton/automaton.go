package automaton

import "math"

// Deadline values with special meaning.
const (
	// Infinite marks a plain guard: valid for as long as the cursor stays.
	Infinite = -1
	// Default marks the unconditional fallback transition.
	Default = 0
	// Reserved is used internally by the compiler and rejected in input.
	Reserved = math.MaxInt
)

// State is a node of an automaton. Create states with Automaton.AddState;
// a State built by hand is not part of any automaton.
type State[C any] struct {
	Name      string
	Actions   []Action[C]
	Modifiers Modifier
	Spawns    []SpawnDirective[C]
}

// SpawnDirective names a child automaton started when the state is entered.
type SpawnDirective[C any] struct {
	Automaton string
	Spawner   Spawner[C]
}

// Transition connects two states. A nil Predicate means the transition is
// purely time-driven (a timeout edge or the default).
type Transition[C any] struct {
	From      *State[C]
	To        *State[C]
	Predicate Predicate[C]
	Deadline  int
}

// Kind classifies a transition by predicate and deadline.
type Kind int

const (
	KindGuard Kind = iota
	KindBoundedGuard
	KindTimeout
	KindDefault
)

// Kind returns the transition's category. Validate rejects combinations
// that fit none of them.
func (t Transition[C]) Kind() Kind {
	switch {
	case t.Predicate == nil && t.Deadline == Default:
		return KindDefault
	case t.Predicate == nil:
		return KindTimeout
	case t.Deadline == Infinite:
		return KindGuard
	default:
		return KindBoundedGuard
	}
}

// Automaton is the mutable, uncompiled model.
type Automaton[C any] struct {
	name        string
	states      []*State[C]
	index       map[*State[C]]int
	transitions map[*State[C]][]Transition[C]
}

// New creates an empty automaton.
func New[C any](name string) *Automaton[C] {
	return &Automaton[C]{
		name:        name,
		index:       make(map[*State[C]]int),
		transitions: make(map[*State[C]][]Transition[C]),
	}
}

// Name returns the automaton's name.
func (a *Automaton[C]) Name() string {
	return a.name
}

// AddState declares a state. Declaration order is preserved and becomes
// the state's index in the compiled form.
func (a *Automaton[C]) AddState(name string, mods Modifier, actions ...Action[C]) *State[C] {
	s := &State[C]{
		Name:      name,
		Actions:   append([]Action[C](nil), actions...),
		Modifiers: mods,
	}
	a.index[s] = len(a.states)
	a.states = append(a.states, s)
	return s
}

// AddSpawn attaches a spawn directive to s and flags it Spawn.
func (a *Automaton[C]) AddSpawn(s *State[C], automaton string, spawner Spawner[C]) {
	s.Spawns = append(s.Spawns, SpawnDirective[C]{Automaton: automaton, Spawner: spawner})
	s.Modifiers |= Spawn
}

// SetInitial flags s as the initial state.
func (a *Automaton[C]) SetInitial(s *State[C]) {
	s.Modifiers |= Initial
}

// AddTransition adds a transition from -> to. Problems with the arguments
// are reported by Validate, not here.
func (a *Automaton[C]) AddTransition(from *State[C], pred Predicate[C], deadline int, to *State[C]) {
	a.transitions[from] = append(a.transitions[from], Transition[C]{
		From:      from,
		To:        to,
		Predicate: pred,
		Deadline:  deadline,
	})
}

// AddGuard adds a plain guard.
func (a *Automaton[C]) AddGuard(from *State[C], pred Predicate[C], to *State[C]) {
	a.AddTransition(from, pred, Infinite, to)
}

// AddDefault adds the unconditional fallback transition.
func (a *Automaton[C]) AddDefault(from, to *State[C]) {
	a.AddTransition(from, nil, Default, to)
}

// AddTimeout adds a timeout edge firing after ticks ticks.
func (a *Automaton[C]) AddTimeout(from *State[C], ticks int, to *State[C]) {
	a.AddTransition(from, nil, ticks, to)
}

// States returns the declared states in declaration order.
func (a *Automaton[C]) States() []*State[C] {
	return append([]*State[C](nil), a.states...)
}

// State returns the declared state with the given name, or nil.
func (a *Automaton[C]) State(name string) *State[C] {
	for _, s := range a.states {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Index returns the declaration index of s, or -1 if s is not declared.
func (a *Automaton[C]) Index(s *State[C]) int {
	if i, ok := a.index[s]; ok {
		return i
	}
	return -1
}

// Initial returns the first state flagged Initial, or nil.
func (a *Automaton[C]) Initial() *State[C] {
	for _, s := range a.states {
		if s.Modifiers.Has(Initial) {
			return s
		}
	}
	return nil
}

// Transitions returns the outgoing transitions of s in declaration order.
func (a *Automaton[C]) Transitions(s *State[C]) []Transition[C] {
	return append([]Transition[C](nil), a.transitions[s]...)
}

// Followers returns the distinct targets of s in first-seen order.
func (a *Automaton[C]) Followers(s *State[C]) []*State[C] {
	var out []*State[C]
	seen := make(map[*State[C]]bool)
	for _, t := range a.transitions[s] {
		if !seen[t.To] {
			seen[t.To] = true
			out = append(out, t.To)
		}
	}
	return out
}

// Predicate returns the predicate of the first guarded transition src -> dst.
func (a *Automaton[C]) Predicate(src, dst *State[C]) Predicate[C] {
	for _, t := range a.transitions[src] {
		if t.To == dst && t.Predicate != nil {
			return t.Predicate
		}
	}
	return nil
}

// Timeout returns the deadline of the first transition src -> dst, and
// false when there is none.
func (a *Automaton[C]) Timeout(src, dst *State[C]) (int, bool) {
	for _, t := range a.transitions[src] {
		if t.To == dst {
			return t.Deadline, true
		}
	}
	return 0, false
}
