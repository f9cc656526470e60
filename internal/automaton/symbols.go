package automaton

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Predicate tests the context for one instance. Key is the instance key,
// empty for unkeyed cursors.
//
// Predicates are compared by identity: the compiler evaluates a predicate
// value shared by several transitions of one state only once per tick.
type Predicate[C any] interface {
	Valid(ctx C, key string) bool
	Type() string
}

// Action hooks run on state entry (Pre), on each tick spent in the state
// without a transition (Each) and on exit (Post).
type Action[C any] interface {
	Pre(ctx C, key string)
	Each(ctx C, key string)
	Post(ctx C, key string)
	Type() string
}

// Spawner computes the key of a child instance from the context and the
// parent's key.
type Spawner[C any] interface {
	SpawnKey(ctx C, parentKey string) string
}

// NewPredicate adapts a function to a Predicate.
func NewPredicate[C any](name string, fn func(ctx C, key string) bool) Predicate[C] {
	return &predicateFunc[C]{name: name, fn: fn}
}

type predicateFunc[C any] struct {
	name string
	fn   func(C, string) bool
}

func (p *predicateFunc[C]) Valid(ctx C, key string) bool { return p.fn(ctx, key) }
func (p *predicateFunc[C]) Type() string                 { return p.name }
func (p *predicateFunc[C]) String() string               { return p.name }

// ActionFuncs is an Action whose hooks are optional functions. Nil hooks
// are no-ops. Use a pointer so that the action compares by identity.
type ActionFuncs[C any] struct {
	Name   string
	OnPre  func(ctx C, key string)
	OnEach func(ctx C, key string)
	OnPost func(ctx C, key string)
}

func (a *ActionFuncs[C]) Pre(ctx C, key string) {
	if a.OnPre != nil {
		a.OnPre(ctx, key)
	}
}

func (a *ActionFuncs[C]) Each(ctx C, key string) {
	if a.OnEach != nil {
		a.OnEach(ctx, key)
	}
}

func (a *ActionFuncs[C]) Post(ctx C, key string) {
	if a.OnPost != nil {
		a.OnPost(ctx, key)
	}
}

func (a *ActionFuncs[C]) Type() string { return a.Name }

// SpawnerFunc adapts a function to a Spawner.
type SpawnerFunc[C any] func(ctx C, parentKey string) string

func (f SpawnerFunc[C]) SpawnKey(ctx C, parentKey string) string { return f(ctx, parentKey) }

// SequentialKeys returns a Spawner producing "parent/prefix-1",
// "parent/prefix-2", ... (or "prefix-N" for an unkeyed parent).
func SequentialKeys[C any](prefix string) Spawner[C] {
	var n atomic.Int64
	return SpawnerFunc[C](func(_ C, parentKey string) string {
		key := fmt.Sprintf("%s-%d", prefix, n.Add(1))
		if parentKey == "" {
			return key
		}
		return parentKey + "/" + key
	})
}

// SamePredicate reports whether a and b are the same predicate value.
// Values of non-comparable dynamic types are never equal to each other.
func SamePredicate[C any](a, b Predicate[C]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
