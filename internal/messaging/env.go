package messaging

import (
	"errors"
	"strings"

	"github.com/roach88/tima/internal/engine"
)

// ErrNoDestination is returned when a destination cannot be resolved, such
// as the parent of a root instance.
var ErrNoDestination = errors.New("no destination")

// Env is the context messaging automata run over. One Env exists per
// instance key and lives across ticks; the executor passes it to every
// predicate and action of that instance.
type Env[U any] struct {
	// User is the user context snapshot of the current tick.
	User U
	// Key is the instance key.
	Key string
	// Tick is the executor tick being stepped.
	Tick int64

	mailbox *Mailbox
	office  *PostOffice
	current Message
	has     bool
}

// Mailbox returns the instance's mailbox.
func (e *Env[U]) Mailbox() *Mailbox { return e.mailbox }

// Current returns the message claimed by the last successful Select.
func (e *Env[U]) Current() (Message, bool) { return e.current, e.has }

// Select claims a message matching p from the instance's mailbox and makes
// it the current message.
func (e *Env[U]) Select(p Pattern, mode SelectMode) bool {
	m, ok := e.mailbox.Select(p, mode)
	if ok {
		e.current, e.has = m, true
	}
	return ok
}

// Send delivers m to the mailbox of key.
func (e *Env[U]) Send(key string, m Message) error {
	return e.office.Deliver(key, m)
}

// ParentKey returns the key of the instance that spawned key, following
// the "parent/child" convention of automaton.SequentialKeys.
func ParentKey(key string) (string, bool) {
	i := strings.LastIndexByte(key, '/')
	if i < 0 {
		return "", false
	}
	return key[:i], true
}

// Provider hands every instance its Env. It implements
// engine.KeyedContextProvider, engine.TickAware and engine.TickEnder:
// within a tick the base provider is sampled once and the snapshot shared
// by every Env; between ticks every call samples it afresh.
type Provider[U any] struct {
	base   engine.ContextProvider[U]
	office *PostOffice
	envs   map[string]*Env[U]

	snapshot U
	tick     int64
	inTick   bool
}

// NewProvider wraps base. office receives every message sent through the
// Envs it hands out.
func NewProvider[U any](base engine.ContextProvider[U], office *PostOffice) *Provider[U] {
	return &Provider[U]{base: base, office: office, envs: make(map[string]*Env[U])}
}

// BeginTick implements engine.TickAware.
func (p *Provider[U]) BeginTick(tick int64) {
	if ta, ok := p.base.(engine.TickAware); ok {
		ta.BeginTick(tick)
	}
	p.snapshot = p.base.Context()
	p.tick = tick
	p.inTick = true
}

// EndTick implements engine.TickEnder.
func (p *Provider[U]) EndTick(int64) { p.inTick = false }

// Context returns the Env of the unkeyed instance.
func (p *Provider[U]) Context() *Env[U] { return p.ContextFor("") }

// ContextFor implements engine.KeyedContextProvider.
func (p *Provider[U]) ContextFor(key string) *Env[U] {
	if !p.inTick {
		p.snapshot = p.base.Context()
	}
	env, ok := p.envs[key]
	if !ok {
		env = &Env[U]{Key: key, mailbox: p.office.Mailbox(key), office: p.office}
		p.envs[key] = env
	}
	env.User = p.snapshot
	env.Tick = p.tick
	return env
}

// Office returns the post office.
func (p *Provider[U]) Office() *PostOffice { return p.office }

var (
	_ engine.KeyedContextProvider[*Env[int]] = (*Provider[int])(nil)
	_ engine.ContextProvider[*Env[int]]      = (*Provider[int])(nil)
	_ engine.TickAware                       = (*Provider[int])(nil)
	_ engine.TickEnder                       = (*Provider[int])(nil)
)
