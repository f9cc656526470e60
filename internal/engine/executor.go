package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/tima/internal/ir"
)

// ContextProvider supplies the context snapshot for a tick.
type ContextProvider[C any] interface {
	Context() C
}

// KeyedContextProvider supplies a separate context per instance key. When
// the executor's provider implements it, every cursor is stepped with its
// own context instead of the shared snapshot.
type KeyedContextProvider[C any] interface {
	ContextFor(key string) C
}

// TickAware providers are told when a new tick begins, before any cursor
// is stepped.
type TickAware interface {
	BeginTick(tick int64)
}

// TickEnder providers are told when every cursor of a tick, and every
// child spawned in it, has been stepped.
type TickEnder interface {
	EndTick(tick int64)
}

// ProviderFunc adapts a function to a ContextProvider.
type ProviderFunc[C any] func() C

func (f ProviderFunc[C]) Context() C { return f() }

// Static returns a provider that always yields ctx.
func Static[C any](ctx C) ContextProvider[C] {
	return ProviderFunc[C](func() C { return ctx })
}

// Option configures an Executor.
type Option func(*config)

type config struct {
	maxUrgent int
	ids       IDGenerator
	listeners []Listener
	logger    *slog.Logger
}

// WithMaxUrgentSteps sets the urgent chaining bound for every cursor.
//
// Default: 1000 (DefaultMaxUrgentSteps)
func WithMaxUrgentSteps(n int) Option {
	return func(c *config) { c.maxUrgent = n }
}

// WithIDGenerator overrides the instance id generator (UUIDv7 by default).
func WithIDGenerator(g IDGenerator) Option {
	return func(c *config) { c.ids = g }
}

// WithListener adds a listener for cursor lifecycle events.
func WithListener(l Listener) Option {
	return func(c *config) { c.listeners = append(c.listeners, l) }
}

// WithLogger sets the logger (slog.Default by default).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Executor steps a pool of cursors sharing one context provider.
//
// Every Step advances the logical clock, takes one context snapshot and
// steps every live cursor once, in the order the cursors were started.
// Terminated cursors are removed; a cursor that fails is removed and its
// error reported without affecting the others. Cursors spawned during a
// Step join the pool after it and are first stepped in the next one.
//
// Thread-safety: Executor is not safe for concurrent use. Step, Start and
// Run must be called from one goroutine.
type Executor[C any] struct {
	provider ContextProvider[C]
	keyed    KeyedContextProvider[C]
	cfg      config
	clock    *Clock

	catalog  map[string]*ir.Compiled[C]
	cursors  []*Cursor[C]
	pending  []*Cursor[C]
	faults   []error
	stepping bool
	starting int
	snapshot C
}

// NewExecutor creates an executor drawing contexts from provider.
func NewExecutor[C any](provider ContextProvider[C], opts ...Option) *Executor[C] {
	cfg := config{
		maxUrgent: DefaultMaxUrgentSteps,
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Executor[C]{
		provider: provider,
		cfg:      cfg,
		clock:    NewClock(),
		catalog:  make(map[string]*ir.Compiled[C]),
	}
	if k, ok := provider.(KeyedContextProvider[C]); ok {
		e.keyed = k
	}
	return e
}

// Register makes compiled automata available to spawn directives by name.
func (e *Executor[C]) Register(automata ...*ir.Compiled[C]) {
	for _, a := range automata {
		e.catalog[a.Name()] = a
	}
}

// Automaton returns the registered automaton with the given name.
func (e *Executor[C]) Automaton(name string) (*ir.Compiled[C], bool) {
	a, ok := e.catalog[name]
	return a, ok
}

// Start creates a cursor for a with the given key (empty for none) and
// enters its initial state. a is registered as a side effect.
func (e *Executor[C]) Start(a *ir.Compiled[C], key string) error {
	e.Register(a)
	cur := e.newCursor(a, key)
	e.emit(Event{Type: EventStarted, Instance: cur.ID(), Key: key, Automaton: a.Name(), To: cur.StateName()})
	e.cfg.logger.Debug("cursor started", "automaton", a.Name(), "instance", cur.ID(), "key", key)

	// The slot is reserved before entering so that children spawned by the
	// initial state are ordered after their parent.
	e.pending = append(e.pending, cur)
	e.starting++
	done, err := e.safely(cur, func() (bool, error) {
		return cur.Start(e.contextFor(key))
	})
	e.starting--

	switch {
	case err != nil:
		e.pending = slices.DeleteFunc(e.pending, func(c *Cursor[C]) bool { return c == cur })
		e.fault(cur, err)
	case done:
		e.pending = slices.DeleteFunc(e.pending, func(c *Cursor[C]) bool { return c == cur })
		e.reap(cur)
	}
	if !e.stepping && e.starting == 0 {
		e.cursors = append(e.cursors, e.pending...)
		e.pending = nil
	}
	return err
}

// StartNamed starts a registered automaton.
func (e *Executor[C]) StartNamed(name, key string) error {
	a, ok := e.catalog[name]
	if !ok {
		return unknownAutomaton(name)
	}
	return e.Start(a, key)
}

func unknownAutomaton(name string) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeUnknownAutomaton,
		Message:   fmt.Sprintf("automaton %q is not registered", name),
		Automaton: name,
	}
}

// Spawn implements Host. Only an unregistered name fails the parent; a
// child that faults while entering its initial state is reported and
// removed on its own.
func (e *Executor[C]) Spawn(name, key string) error {
	a, ok := e.catalog[name]
	if !ok {
		return unknownAutomaton(name)
	}
	_ = e.Start(a, key)
	return nil
}

// Step advances every live cursor by one tick. It reports whether any
// cursor is still alive and returns the joined errors of cursors that
// failed during this tick, children spawned in it included.
func (e *Executor[C]) Step() (bool, error) {
	tick := e.clock.Next()
	if ta, ok := e.provider.(TickAware); ok {
		ta.BeginTick(tick)
	}
	if e.keyed == nil {
		e.snapshot = e.provider.Context()
	}

	e.stepping = true
	e.faults = nil
	live := make([]*Cursor[C], 0, len(e.cursors))
	for _, cur := range e.cursors {
		done, err := e.safely(cur, func() (bool, error) {
			return cur.Next(e.contextFor(cur.Key()))
		})
		switch {
		case err != nil:
			e.fault(cur, err)
		case done:
			e.reap(cur)
		default:
			live = append(live, cur)
		}
	}
	e.cursors = append(live, e.pending...)
	e.pending = nil
	e.stepping = false
	if te, ok := e.provider.(TickEnder); ok {
		te.EndTick(tick)
	}

	return len(e.cursors) > 0, errors.Join(e.faults...)
}

// Run steps until no cursor is alive, maxTicks steps were taken (0 for no
// limit) or ctx is done. Cursor faults do not stop the run; they are
// joined into the returned error.
func (e *Executor[C]) Run(ctx context.Context, maxTicks int64) error {
	var errs []error
	for n := int64(0); maxTicks == 0 || n < maxTicks; n++ {
		if len(e.cursors) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, err := e.Step()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cursors returns read-only views of the live cursors in stepping order.
func (e *Executor[C]) Cursors() []CursorView[C] {
	out := make([]CursorView[C], len(e.cursors))
	for i, cur := range e.cursors {
		out[i] = cur
	}
	return out
}

// Tick returns the number of ticks stepped so far.
func (e *Executor[C]) Tick() int64 {
	return e.clock.Current()
}

func (e *Executor[C]) newCursor(a *ir.Compiled[C], key string) *Cursor[C] {
	var cur *Cursor[C]
	cur = NewCursor(a, key,
		WithInstanceID(e.cfg.ids.Generate()),
		WithCursorMaxUrgentSteps(e.cfg.maxUrgent),
		WithHost(e),
		WithObserver(func(m Move) { e.moved(cur, m) }),
	)
	return cur
}

func (e *Executor[C]) contextFor(key string) C {
	if e.keyed != nil {
		return e.keyed.ContextFor(key)
	}
	if e.stepping {
		return e.snapshot
	}
	return e.provider.Context()
}

// safely runs fn and converts a panic in user code into an error.
func (e *Executor[C]) safely(cur *Cursor[C], fn func() (bool, error)) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			done = false
			err = &RuntimeError{
				Code:      ErrCodeActionPanic,
				Message:   fmt.Sprint(r),
				Automaton: cur.Automaton().Name(),
				Instance:  cur.ID(),
				State:     cur.StateName(),
			}
		}
	}()
	return fn()
}

func (e *Executor[C]) moved(cur *Cursor[C], m Move) {
	a := cur.Automaton()
	ev := Event{
		Type:      EventTransition,
		Instance:  cur.ID(),
		Key:       cur.Key(),
		Automaton: a.Name(),
		From:      a.State(m.From).Name,
		To:        a.State(m.To).Name,
		Timeout:   m.Predicate < 0,
		Self:      m.Self,
	}
	if m.Predicate >= 0 {
		ev.Predicate = a.PredicateAt(m.Predicate).Type()
	}
	e.emit(ev)
}

func (e *Executor[C]) reap(cur *Cursor[C]) {
	e.cfg.logger.Debug("cursor terminated",
		"automaton", cur.Automaton().Name(),
		"instance", cur.ID(),
		"state", cur.StateName(),
	)
	e.emit(Event{
		Type:      EventReaped,
		Instance:  cur.ID(),
		Key:       cur.Key(),
		Automaton: cur.Automaton().Name(),
		From:      cur.StateName(),
	})
}

func (e *Executor[C]) fault(cur *Cursor[C], err error) {
	if e.stepping {
		e.faults = append(e.faults, err)
	}
	e.cfg.logger.Error("cursor failed",
		"automaton", cur.Automaton().Name(),
		"instance", cur.ID(),
		"error", err,
	)
	e.emit(Event{
		Type:      EventFault,
		Instance:  cur.ID(),
		Key:       cur.Key(),
		Automaton: cur.Automaton().Name(),
		From:      cur.StateName(),
		Err:       err,
	})
}

func (e *Executor[C]) emit(ev Event) {
	ev.Tick = e.clock.Current()
	for _, l := range e.cfg.listeners {
		l(ev)
	}
}
