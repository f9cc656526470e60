package messaging

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tima/internal/automaton"
)

// Select returns a predicate that claims a message matching p from the
// instance's mailbox.
func Select[U any](name string, p Pattern, mode SelectMode) automaton.Predicate[*Env[U]] {
	return automaton.NewPredicate(name, func(e *Env[U], _ string) bool {
		return e.Select(p, mode)
	})
}

// Destination resolves the key a message is sent to from the sender's key.
type Destination func(self string) (string, error)

// To sends to a fixed key.
func To(key string) Destination {
	return func(string) (string, error) { return key, nil }
}

// Self sends to the sender's own mailbox.
func Self() Destination {
	return func(self string) (string, error) { return self, nil }
}

// Parent sends to the instance that spawned the sender.
func Parent() Destination {
	return func(self string) (string, error) {
		p, ok := ParentKey(self)
		if !ok {
			return "", fmt.Errorf("parent of %q: %w", self, ErrNoDestination)
		}
		return p, nil
	}
}

// SendAction delivers a message when its state is entered.
//
// The message is Merge(Proto, current, Rules...) when the instance holds a
// current message, Proto otherwise. Delivery failures are logged and the
// message dropped; they never abort the sender.
type SendAction[U any] struct {
	Name   string
	To     Destination
	Proto  Message
	Rules  []FieldRule
	Logger *slog.Logger
}

// Send returns a SendAction.
func Send[U any](name string, to Destination, proto Message, rules ...FieldRule) *SendAction[U] {
	return &SendAction[U]{Name: name, To: to, Proto: proto, Rules: rules}
}

func (s *SendAction[U]) Pre(e *Env[U], key string) {
	m := s.Proto
	if cur, ok := e.Current(); ok {
		m = Merge(s.Proto, cur, s.Rules...)
	}
	to, err := s.To(key)
	if err == nil {
		err = e.Send(to, m)
	}
	if err != nil {
		s.logger().Warn("message dropped", "from", key, "message", m.String(), "error", err)
	}
}

func (s *SendAction[U]) Each(*Env[U], string) {}
func (s *SendAction[U]) Post(*Env[U], string) {}
func (s *SendAction[U]) Type() string         { return s.Name }

func (s *SendAction[U]) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Lift adapts a predicate over U to one over *Env[U].
func Lift[U any](p automaton.Predicate[U]) automaton.Predicate[*Env[U]] {
	return automaton.NewPredicate(p.Type(), func(e *Env[U], key string) bool {
		return p.Valid(e.User, key)
	})
}

// LiftAction adapts an action over U to one over *Env[U].
func LiftAction[U any](a automaton.Action[U]) automaton.Action[*Env[U]] {
	return &automaton.ActionFuncs[*Env[U]]{
		Name:   a.Type(),
		OnPre:  func(e *Env[U], key string) { a.Pre(e.User, key) },
		OnEach: func(e *Env[U], key string) { a.Each(e.User, key) },
		OnPost: func(e *Env[U], key string) { a.Post(e.User, key) },
	}
}

// LiftSpawner adapts a spawner over U to one over *Env[U].
func LiftSpawner[U any](s automaton.Spawner[U]) automaton.Spawner[*Env[U]] {
	return automaton.SpawnerFunc[*Env[U]](func(e *Env[U], parent string) string {
		return s.SpawnKey(e.User, parent)
	})
}
