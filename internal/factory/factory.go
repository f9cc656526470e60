package factory

import (
	"errors"
	"fmt"

	"github.com/roach88/tima/internal/automaton"
)

// Factory builds automaton symbols from their definition names.
type Factory[C any] interface {
	NewPredicate(typ, attr string) (automaton.Predicate[C], error)
	NewAction(typ, attr string) (automaton.Action[C], error)
	NewSpawner(typ, attr string) (automaton.Spawner[C], error)
}

// Kind names the three symbol categories.
type Kind string

const (
	KindPredicate Kind = "predicate"
	KindAction    Kind = "action"
	KindSpawner   Kind = "spawner"
)

// UnresolvableSymbolError reports a name no constructor is registered for,
// or whose constructor rejected the attribute.
type UnresolvableSymbolError struct {
	Kind Kind
	Type string
	Attr string
	Err  error
}

func (e *UnresolvableSymbolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve %s %q (attr %q): %v", e.Kind, e.Type, e.Attr, e.Err)
	}
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Type)
}

func (e *UnresolvableSymbolError) Unwrap() error { return e.Err }

// IsUnresolvable returns true if err is or wraps an *UnresolvableSymbolError.
func IsUnresolvable(err error) bool {
	var ue *UnresolvableSymbolError
	return errors.As(err, &ue)
}
