package factory

import (
	"slices"
	"sync"

	"github.com/roach88/tima/internal/automaton"
)

// PredicateCtor builds a predicate from its attribute string.
type PredicateCtor[C any] func(attr string) (automaton.Predicate[C], error)

// ActionCtor builds an action from its attribute string.
type ActionCtor[C any] func(attr string) (automaton.Action[C], error)

// SpawnerCtor builds a spawner from its attribute string.
type SpawnerCtor[C any] func(attr string) (automaton.Spawner[C], error)

// Registry is the constructor table behind a Factory.
//
// Thread-safety: Registry is safe for concurrent use. Registration normally
// happens once at startup, before any definition is loaded.
type Registry[C any] struct {
	mu         sync.Mutex
	predicates map[string]PredicateCtor[C]
	actions    map[string]ActionCtor[C]
	spawners   map[string]SpawnerCtor[C]
	cache      map[cacheKey]any
}

type cacheKey struct {
	kind Kind
	typ  string
	attr string
}

// NewRegistry returns an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{
		predicates: make(map[string]PredicateCtor[C]),
		actions:    make(map[string]ActionCtor[C]),
		spawners:   make(map[string]SpawnerCtor[C]),
		cache:      make(map[cacheKey]any),
	}
}

// RegisterPredicate binds name to ctor, replacing any previous binding.
func (r *Registry[C]) RegisterPredicate(name string, ctor PredicateCtor[C]) *Registry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = ctor
	r.evict(KindPredicate, name)
	return r
}

// RegisterAction binds name to ctor, replacing any previous binding.
func (r *Registry[C]) RegisterAction(name string, ctor ActionCtor[C]) *Registry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = ctor
	r.evict(KindAction, name)
	return r
}

// RegisterSpawner binds name to ctor, replacing any previous binding.
func (r *Registry[C]) RegisterSpawner(name string, ctor SpawnerCtor[C]) *Registry[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawners[name] = ctor
	r.evict(KindSpawner, name)
	return r
}

// evict drops cached instances of a rebound name. Caller holds mu.
func (r *Registry[C]) evict(kind Kind, name string) {
	for k := range r.cache {
		if k.kind == kind && k.typ == name {
			delete(r.cache, k)
		}
	}
}

// NewPredicate implements Factory.
func (r *Registry[C]) NewPredicate(typ, attr string) (automaton.Predicate[C], error) {
	return resolve(r, KindPredicate, typ, attr, r.predicates)
}

// NewAction implements Factory.
func (r *Registry[C]) NewAction(typ, attr string) (automaton.Action[C], error) {
	return resolve(r, KindAction, typ, attr, r.actions)
}

// NewSpawner implements Factory.
func (r *Registry[C]) NewSpawner(typ, attr string) (automaton.Spawner[C], error) {
	return resolve(r, KindSpawner, typ, attr, r.spawners)
}

func resolve[C any, T any, F ~func(string) (T, error)](r *Registry[C], kind Kind, typ, attr string, table map[string]F) (T, error) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{kind: kind, typ: typ, attr: attr}
	if v, ok := r.cache[key]; ok {
		return v.(T), nil
	}
	ctor, ok := table[typ]
	if !ok {
		return zero, &UnresolvableSymbolError{Kind: kind, Type: typ, Attr: attr}
	}
	v, err := ctor(attr)
	if err != nil {
		return zero, &UnresolvableSymbolError{Kind: kind, Type: typ, Attr: attr, Err: err}
	}
	r.cache[key] = v
	return v, nil
}

// Names returns the registered names of kind, sorted.
func (r *Registry[C]) Names(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	switch kind {
	case KindPredicate:
		names = keys(r.predicates)
	case KindAction:
		names = keys(r.actions)
	case KindSpawner:
		names = keys(r.spawners)
	}
	slices.Sort(names)
	return names
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

var _ Factory[struct{}] = (*Registry[struct{}])(nil)
