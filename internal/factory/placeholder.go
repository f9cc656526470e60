package factory

import "github.com/roach88/tima/internal/automaton"

// Placeholder resolves every name. Predicates never hold, actions do
// nothing and spawners yield an empty key. It lets definitions be
// validated, compiled and rendered without their runtime symbols.
type Placeholder[C any] struct{}

// NewPredicate implements Factory.
func (Placeholder[C]) NewPredicate(typ, attr string) (automaton.Predicate[C], error) {
	return automaton.NewPredicate(label(typ, attr), func(C, string) bool { return false }), nil
}

// NewAction implements Factory.
func (Placeholder[C]) NewAction(typ, attr string) (automaton.Action[C], error) {
	return &automaton.ActionFuncs[C]{Name: label(typ, attr)}, nil
}

// NewSpawner implements Factory.
func (Placeholder[C]) NewSpawner(string, string) (automaton.Spawner[C], error) {
	return automaton.SpawnerFunc[C](func(C, string) string { return "" }), nil
}

func label(typ, attr string) string {
	if attr == "" {
		return typ
	}
	return typ + ":" + attr
}
