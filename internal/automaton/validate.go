package automaton

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation error codes (E200-E299)
const (
	ErrNoInitial         = "E201" // no state flagged initial
	ErrMultipleInitial   = "E202" // more than one initial state
	ErrDanglingState     = "E203" // transition references an undeclared state
	ErrReservedDeadline  = "E204" // reserved sentinel used as deadline
	ErrInvalidDeadline   = "E205" // deadline below Infinite
	ErrExpiredGuard      = "E206" // guard with Default deadline is never evaluated
	ErrUnguardedInfinite = "E207" // infinite transition without predicate
	ErrMultipleDefaults  = "E208" // more than one default transition
	ErrMultipleTimeouts  = "E209" // more than one timeout edge
	ErrDefaultWithGuard  = "E210" // default mixed with plain guards
	ErrDefaultAndTimeout = "E211" // default mixed with a timeout edge
	ErrDeadEnd           = "E212" // no way out once bounded guards expire
	ErrSpawnTarget       = "E213" // spawn directive without automaton name
	ErrDuplicateState    = "E214" // two states share a name
)

// Problem is a single validation finding.
type Problem struct {
	Code    string `json:"code"`
	State   string `json:"state,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.State != "" {
		return fmt.Sprintf("[%s] %s: %s", p.Code, p.State, p.Message)
	}
	return fmt.Sprintf("[%s] %s", p.Code, p.Message)
}

// MalformedError reports a structurally invalid automaton. It lists every
// problem found, not just the first one.
type MalformedError struct {
	Automaton string
	Problems  []Problem
}

func (e *MalformedError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("malformed automaton %q: %s", e.Automaton, strings.Join(parts, "; "))
}

// Has reports whether a problem with the given code was found.
func (e *MalformedError) Has(code string) bool {
	for _, p := range e.Problems {
		if p.Code == code {
			return true
		}
	}
	return false
}

// IsMalformed returns true if err is or wraps a *MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// Validate checks the structural rules of the model. It returns nil or a
// *MalformedError.
func (a *Automaton[C]) Validate() error {
	var problems []Problem
	add := func(code, state, format string, args ...any) {
		problems = append(problems, Problem{Code: code, State: state, Message: fmt.Sprintf(format, args...)})
	}

	names := make(map[string]bool)
	var initials []string
	for _, s := range a.states {
		if names[s.Name] {
			add(ErrDuplicateState, s.Name, "duplicate state name")
		}
		names[s.Name] = true
		if s.Modifiers.Has(Initial) {
			initials = append(initials, s.Name)
		}
		for _, d := range s.Spawns {
			if d.Automaton == "" {
				add(ErrSpawnTarget, s.Name, "spawn directive without automaton name")
			}
		}
	}
	switch {
	case len(initials) == 0:
		add(ErrNoInitial, "", "no initial state")
	case len(initials) > 1:
		add(ErrMultipleInitial, "", "more than one initial state: %s", strings.Join(initials, ", "))
	}

	var undeclared []string
	for from := range a.transitions {
		if _, ok := a.index[from]; !ok {
			undeclared = append(undeclared, stateName(from))
		}
	}
	sort.Strings(undeclared)
	for _, name := range undeclared {
		add(ErrDanglingState, name, "transition from undeclared state")
	}

	for _, s := range a.states {
		problems = append(problems, a.validateState(s)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return &MalformedError{Automaton: a.name, Problems: problems}
}

func (a *Automaton[C]) validateState(s *State[C]) []Problem {
	var problems []Problem
	add := func(code, format string, args ...any) {
		problems = append(problems, Problem{Code: code, State: s.Name, Message: fmt.Sprintf(format, args...)})
	}

	var defaults, timeouts, guards, bounded int
	for i, t := range a.transitions[s] {
		if _, ok := a.index[t.To]; !ok {
			add(ErrDanglingState, "transition %d targets undeclared state %q", i, stateName(t.To))
		}
		switch {
		case t.Deadline == Reserved:
			add(ErrReservedDeadline, "transition %d uses the reserved deadline", i)
			continue
		case t.Deadline < Infinite:
			add(ErrInvalidDeadline, "transition %d has negative deadline %d", i, t.Deadline)
			continue
		case t.Predicate != nil && t.Deadline == Default:
			add(ErrExpiredGuard, "transition %d is guarded but expires before its first tick", i)
			continue
		case t.Predicate == nil && t.Deadline == Infinite:
			add(ErrUnguardedInfinite, "transition %d never fires: no predicate and no deadline", i)
			continue
		}
		switch t.Kind() {
		case KindDefault:
			defaults++
		case KindTimeout:
			timeouts++
		case KindGuard:
			guards++
		case KindBoundedGuard:
			bounded++
		}
	}

	if defaults > 1 {
		add(ErrMultipleDefaults, "%d default transitions", defaults)
	}
	if timeouts > 1 {
		add(ErrMultipleTimeouts, "%d timeout transitions", timeouts)
	}
	if defaults > 0 && guards > 0 {
		add(ErrDefaultWithGuard, "default transition is unreachable next to plain guards")
	}
	if defaults > 0 && timeouts > 0 {
		add(ErrDefaultAndTimeout, "cannot mix a default and a timeout transition")
	}
	if bounded > 0 && defaults == 0 && timeouts == 0 && guards == 0 {
		add(ErrDeadEnd, "no transition left once bounded guards expire")
	}
	return problems
}

func stateName[C any](s *State[C]) string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}
