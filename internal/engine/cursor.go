package engine

import (
	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/ir"
)

// Host starts child instances for spawn directives. The Executor is the
// production Host.
type Host interface {
	Spawn(automaton, key string) error
}

// Move describes one transition taken by a cursor. From and To are
// declared state indices. Predicate is -1 for time-driven transitions.
type Move struct {
	From      int
	To        int
	Predicate int
	Self      bool
}

// CursorOption configures a Cursor.
type CursorOption func(*cursorConfig)

type cursorConfig struct {
	id        string
	maxUrgent int
	host      Host
	observer  func(Move)
}

// WithInstanceID sets the cursor's instance id.
func WithInstanceID(id string) CursorOption {
	return func(c *cursorConfig) { c.id = id }
}

// WithCursorMaxUrgentSteps bounds urgent chaining within one Next.
func WithCursorMaxUrgentSteps(n int) CursorOption {
	return func(c *cursorConfig) { c.maxUrgent = n }
}

// WithHost sets the Host receiving spawn requests.
func WithHost(h Host) CursorOption {
	return func(c *cursorConfig) { c.host = h }
}

// WithObserver registers a callback invoked after every transition.
func WithObserver(fn func(Move)) CursorOption {
	return func(c *cursorConfig) { c.observer = fn }
}

// CursorView is the read-only surface of a running cursor.
type CursorView[C any] interface {
	Automaton() *ir.Compiled[C]
	ID() string
	Key() string
	State() int
	Link() int
	StateName() string
	Ticks() int
	LastPredicate() automaton.Predicate[C]
	Terminated() bool
}

// Cursor is one running instance of a compiled automaton.
//
// Each Next call is one tick: the timeout of the current link is checked
// first, then its guards in declaration order; the first that fires wins.
// When nothing fires the state's Each hooks run. Moving between the links
// of one declared state is internal and runs no hooks. A predicate shared
// by several guards is evaluated at most once per evaluation pass.
//
// A Cursor is not safe for concurrent use.
type Cursor[C any] struct {
	a   *ir.Compiled[C]
	key string
	cfg cursorConfig

	current   int
	ticks     int
	linkTicks int
	lastPred  int
	rejected  []bool
	started   bool
	done      bool
}

// NewCursor creates a cursor for a. Call Start before the first Next, or
// let Next start it.
func NewCursor[C any](a *ir.Compiled[C], key string, opts ...CursorOption) *Cursor[C] {
	cfg := cursorConfig{maxUrgent: DefaultMaxUrgentSteps}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cursor[C]{
		a:        a,
		key:      key,
		cfg:      cfg,
		current:  a.Initial(),
		lastPred: -1,
		rejected: make([]bool, a.Predicates()),
	}
}

// Start enters the initial state: spawns and Pre hooks run, and an urgent
// initial state is resolved immediately. It reports whether the cursor has
// already terminated.
func (c *Cursor[C]) Start(ctx C) (bool, error) {
	if c.started {
		return c.done, nil
	}
	c.started = true
	c.current = c.a.Initial()
	if !c.a.InRange(c.current) {
		return false, c.invariant("initial state", c.current)
	}
	if err := c.enter(ctx, c.current); err != nil {
		return false, err
	}
	if c.done {
		return true, nil
	}
	if c.state().Modifiers.Has(automaton.Urgent) {
		return c.advance(ctx)
	}
	return false, nil
}

// Next advances the cursor by one tick and reports whether it has
// terminated. Calling Next on a terminated cursor is a no-op.
func (c *Cursor[C]) Next(ctx C) (bool, error) {
	if c.done {
		return true, nil
	}
	if !c.started {
		if done, err := c.Start(ctx); done || err != nil {
			return done, err
		}
	}
	return c.advance(ctx)
}

type outcome int

const (
	stayed outcome = iota
	retriggered
	entered
)

// advance evaluates the current state and keeps going while the cursor
// lands in urgent states.
func (c *Cursor[C]) advance(ctx C) (bool, error) {
	quota := newUrgentQuota(c.cfg.maxUrgent)
	for {
		out, err := c.evaluate(ctx)
		if err != nil {
			return false, err
		}
		if c.done {
			return true, nil
		}
		if out != entered || !c.state().Modifiers.Has(automaton.Urgent) {
			return false, nil
		}
		if !quota.check() {
			return false, NewUrgentCycleError(c.a.Name(), c.cfg.id, c.StateName(), c.cfg.maxUrgent)
		}
	}
}

func (c *Cursor[C]) evaluate(ctx C) (outcome, error) {
	c.ticks++
	c.linkTicks++
	clear(c.rejected)
	for {
		s := c.current
		if !c.a.InRange(s) {
			return stayed, c.invariant("state", s)
		}

		target, pred := -1, -1
		deadline, timeoutTarget := c.a.TimeoutOf(s)
		if deadline != ir.NoTimeout && c.linkTicks >= deadline {
			if !c.a.InRange(timeoutTarget) {
				return stayed, c.invariant("timeout target", timeoutTarget)
			}
			if c.a.Synthetic(timeoutTarget) && c.a.Origin(timeoutTarget) == c.a.Origin(s) {
				c.current = timeoutTarget
				c.linkTicks = 0
				continue
			}
			target = timeoutTarget
		} else {
			for _, g := range c.a.Guards(s) {
				if g.Predicate < 0 || g.Predicate >= c.a.Predicates() {
					return stayed, c.invariant("predicate", g.Predicate)
				}
				if c.rejected[g.Predicate] {
					continue
				}
				if c.a.PredicateAt(g.Predicate).Valid(ctx, c.key) {
					target, pred = g.Target, g.Predicate
					break
				}
				c.rejected[g.Predicate] = true
			}
		}

		if target == -1 {
			c.each(ctx)
			return stayed, nil
		}
		if !c.a.InRange(target) {
			return stayed, c.invariant("guard target", target)
		}
		if pred >= 0 {
			c.lastPred = pred
		}
		return c.transition(ctx, s, target, pred)
	}
}

func (c *Cursor[C]) transition(ctx C, from, to, pred int) (outcome, error) {
	origin := c.a.Origin(from)
	if to == origin {
		c.each(ctx)
		c.current, c.ticks, c.linkTicks = to, 0, 0
		c.observe(Move{From: origin, To: to, Predicate: pred, Self: true})
		return retriggered, nil
	}

	for _, act := range c.state().Actions {
		act.Post(ctx, c.key)
	}
	c.current, c.ticks, c.linkTicks = to, 0, 0
	c.observe(Move{From: origin, To: c.a.Origin(to), Predicate: pred})
	return entered, c.enter(ctx, to)
}

// enter runs spawn directives then Pre hooks of state i, and marks the
// cursor done when i terminates.
func (c *Cursor[C]) enter(ctx C, i int) error {
	st := c.a.State(i)
	for _, d := range st.Spawns {
		if err := c.spawn(ctx, d); err != nil {
			return err
		}
	}
	for _, act := range st.Actions {
		act.Pre(ctx, c.key)
	}
	if st.Modifiers.Has(automaton.Terminate) {
		c.done = true
	}
	return nil
}

func (c *Cursor[C]) spawn(ctx C, d automaton.SpawnDirective[C]) error {
	if c.cfg.host == nil {
		return &RuntimeError{
			Code:      ErrCodeUnknownAutomaton,
			Message:   "no host to spawn " + d.Automaton,
			Automaton: c.a.Name(),
			Instance:  c.cfg.id,
			State:     c.StateName(),
		}
	}
	key := ""
	if d.Spawner != nil {
		key = d.Spawner.SpawnKey(ctx, c.key)
	}
	return c.cfg.host.Spawn(d.Automaton, key)
}

func (c *Cursor[C]) each(ctx C) {
	for _, act := range c.state().Actions {
		act.Each(ctx, c.key)
	}
}

func (c *Cursor[C]) observe(m Move) {
	if c.cfg.observer != nil {
		c.cfg.observer(m)
	}
}

func (c *Cursor[C]) state() *automaton.State[C] {
	return c.a.State(c.current)
}

func (c *Cursor[C]) invariant(what string, index int) error {
	err := NewInvariantError(c.a.Name(), c.cfg.id, what, index)
	if c.a.InRange(c.current) {
		err.State = c.StateName()
	}
	return err
}

// Automaton returns the compiled automaton the cursor runs.
func (c *Cursor[C]) Automaton() *ir.Compiled[C] { return c.a }

// ID returns the instance id.
func (c *Cursor[C]) ID() string { return c.cfg.id }

// Key returns the instance key, empty when unkeyed.
func (c *Cursor[C]) Key() string { return c.key }

// State returns the index of the declared state the cursor is in.
func (c *Cursor[C]) State() int { return c.a.Origin(c.current) }

// Link returns the raw compiled index, which may be a synthetic link.
func (c *Cursor[C]) Link() int { return c.current }

// StateName returns the name of the declared state the cursor is in.
func (c *Cursor[C]) StateName() string { return c.a.State(c.State()).Name }

// Ticks returns the ticks spent in the current declared state.
func (c *Cursor[C]) Ticks() int { return c.ticks }

// LastPredicate returns the predicate of the last guard that fired, or nil.
func (c *Cursor[C]) LastPredicate() automaton.Predicate[C] {
	if c.lastPred < 0 {
		return nil
	}
	return c.a.PredicateAt(c.lastPred)
}

// Terminated reports whether the cursor entered a Terminate state.
func (c *Cursor[C]) Terminated() bool { return c.done }
