package compiler

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/ir"
)

// Option configures Compile.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Compile validates a and turns it into its executable form.
//
// Competing deadlines of a state are merged into a chain of links: the
// declared state followed by synthetic copies, one per deadline band. Each
// link exposes the guards still valid during its band and times out into
// the next link. The last link times out into the timeout target, or the
// default target, or has no timeout when plain guards remain.
//
// On error no partial result is returned.
func Compile[C any](a *automaton.Automaton[C], opts ...Option) (*ir.Compiled[C], error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	states := a.States()
	b := &builder[C]{a: a, logger: o.logger}
	b.t.Name = a.Name()
	b.t.UserStates = len(states)
	for i, s := range states {
		b.appendState(s, false, i)
	}
	for i, s := range states {
		if err := b.compileState(i, s); err != nil {
			return nil, err
		}
	}
	b.t.Initial = a.Index(a.Initial())

	c, err := ir.New(b.t)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", a.Name(), err)
	}
	o.logger.Debug("automaton compiled",
		"automaton", a.Name(),
		"states", len(states),
		"links", c.Len()-len(states),
		"predicates", c.Predicates(),
	)
	return c, nil
}

type builder[C any] struct {
	a      *automaton.Automaton[C]
	t      ir.Tables[C]
	logger *slog.Logger
}

func (b *builder[C]) appendState(s *automaton.State[C], synthetic bool, origin int) int {
	b.t.States = append(b.t.States, s)
	b.t.Synthetic = append(b.t.Synthetic, synthetic)
	b.t.Origin = append(b.t.Origin, origin)
	b.t.Guarded = append(b.t.Guarded, nil)
	b.t.TimeoutDeadline = append(b.t.TimeoutDeadline, ir.NoTimeout)
	b.t.TimeoutTarget = append(b.t.TimeoutTarget, ir.NoTimeout)
	return len(b.t.States) - 1
}

// addLink appends the synthetic continuation of origin starting at tick
// start. It shares the origin's actions and spawns and is never initial.
func (b *builder[C]) addLink(origin int, start, n int) int {
	s := b.t.States[origin]
	link := &automaton.State[C]{
		Name:      fmt.Sprintf("%s_%d_%d", s.Name, start, n),
		Actions:   s.Actions,
		Modifiers: s.Modifiers &^ automaton.Initial,
		Spawns:    s.Spawns,
	}
	return b.appendState(link, true, origin)
}

func (b *builder[C]) predicateIndex(p automaton.Predicate[C]) int {
	for i, q := range b.t.Predicates {
		if automaton.SamePredicate(p, q) {
			return i
		}
	}
	b.t.Predicates = append(b.t.Predicates, p)
	return len(b.t.Predicates) - 1
}

// window returns the guards of ts still valid at ticks >= start, in
// declaration order.
func (b *builder[C]) window(ts []automaton.Transition[C], start int) []ir.Guard {
	var out []ir.Guard
	for _, t := range ts {
		if t.Deadline == automaton.Infinite || t.Deadline > start {
			out = append(out, ir.Guard{
				Predicate: b.predicateIndex(t.Predicate),
				Target:    b.a.Index(t.To),
			})
		}
	}
	return out
}

func (b *builder[C]) setTimeout(link, delta, target int) {
	b.t.TimeoutDeadline[link] = delta
	b.t.TimeoutTarget[link] = target
}

func (b *builder[C]) compileState(i int, s *automaton.State[C]) error {
	transitions := b.a.Transitions(s)

	var guarded []automaton.Transition[C]
	var timeout, def *automaton.Transition[C]
	plain := 0
	for k := range transitions {
		t := &transitions[k]
		switch t.Kind() {
		case automaton.KindDefault:
			def = t
		case automaton.KindTimeout:
			timeout = t
		case automaton.KindGuard:
			plain++
			guarded = append(guarded, *t)
		case automaton.KindBoundedGuard:
			guarded = append(guarded, *t)
		}
	}

	var breakpoints []int
	seen := make(map[int]bool)
	for _, t := range guarded {
		if t.Deadline == automaton.Infinite || seen[t.Deadline] {
			continue
		}
		if timeout != nil && t.Deadline >= timeout.Deadline {
			b.logger.Warn("bounded guard outlives timeout; truncated",
				"automaton", b.a.Name(),
				"state", s.Name,
				"deadline", t.Deadline,
				"timeout", timeout.Deadline,
			)
			seen[t.Deadline] = true
			continue
		}
		seen[t.Deadline] = true
		breakpoints = append(breakpoints, t.Deadline)
	}
	sort.Ints(breakpoints)
	if timeout != nil {
		breakpoints = append(breakpoints, timeout.Deadline)
	}

	link, start := i, 0
	for k, bp := range breakpoints {
		b.t.Guarded[link] = b.window(guarded, start)
		last := k == len(breakpoints)-1
		switch {
		case timeout != nil && last:
			b.setTimeout(link, bp-start, b.a.Index(timeout.To))
			return nil
		case last && plain == 0 && def != nil:
			b.setTimeout(link, bp-start, b.a.Index(def.To))
			return nil
		case last && plain == 0:
			return deadEnd(b.a.Name(), s.Name)
		}
		next := b.addLink(i, bp, k+1)
		b.setTimeout(link, bp-start, next)
		link, start = next, bp
	}

	if tail := b.window(guarded, start); len(tail) > 0 {
		b.t.Guarded[link] = tail
		return nil
	}
	if def != nil {
		b.setTimeout(link, 0, b.a.Index(def.To))
		return nil
	}
	if len(transitions) == 0 {
		return nil
	}
	return deadEnd(b.a.Name(), s.Name)
}

func deadEnd(automatonName, state string) error {
	return &automaton.MalformedError{
		Automaton: automatonName,
		Problems: []automaton.Problem{{
			Code:    automaton.ErrDeadEnd,
			State:   state,
			Message: "no transition left once bounded guards expire",
		}},
	}
}
