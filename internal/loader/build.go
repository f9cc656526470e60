package loader

import (
	"errors"
	"fmt"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/factory"
	"github.com/roach88/tima/internal/ir"
)

// Build turns definitions into validated automata, resolving every symbol
// through f. An automaton with any error is left out of the result. In
// LoadModeFailFast the first error stops the build.
func Build[C any](defs []Definition, f factory.Factory[C], mode LoadMode) ([]*automaton.Automaton[C], []error) {
	var (
		out  []*automaton.Automaton[C]
		errs []error
	)
	names := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name != "" {
			names[d.Name] = true
		}
	}

	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		var defErrs []error
		switch {
		case d.Name == "":
			defErrs = append(defErrs, &LoadError{Code: ErrCodeNoName, Message: fmt.Sprintf("definition %d has no name", i)})
		case seen[d.Name]:
			defErrs = append(defErrs, &LoadError{Code: ErrCodeDuplicate, Automaton: d.Name, Message: "defined more than once"})
		default:
			seen[d.Name] = true
			b := &builder[C]{def: d, f: f, names: names, a: automaton.New[C](d.Name)}
			b.build()
			defErrs = b.errs
			if len(defErrs) == 0 {
				out = append(out, b.a)
			}
		}
		errs = append(errs, defErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return out, errs[:1]
		}
	}
	return out, errs
}

// BuildCompiled builds and compiles definitions.
func BuildCompiled[C any](defs []Definition, f factory.Factory[C], mode LoadMode, opts ...compiler.Option) ([]*ir.Compiled[C], []error) {
	automata, errs := Build(defs, f, mode)
	if len(errs) > 0 && mode == LoadModeFailFast {
		return nil, errs
	}
	var out []*ir.Compiled[C]
	for _, a := range automata {
		c, err := compiler.Compile(a, opts...)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeMalformed, Automaton: a.Name(), Message: err.Error(), Err: err})
			if mode == LoadModeFailFast {
				return nil, errs
			}
			continue
		}
		out = append(out, c)
	}
	return out, errs
}

type builder[C any] struct {
	def   Definition
	f     factory.Factory[C]
	names map[string]bool
	a     *automaton.Automaton[C]
	errs  []error
}

func (b *builder[C]) fail(code string, err error, format string, args ...any) {
	b.errs = append(b.errs, &LoadError{
		Code:      code,
		Automaton: b.def.Name,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
	})
}

func (b *builder[C]) build() {
	for _, sd := range b.def.States {
		b.state(sd)
	}
	for i, td := range b.def.Transitions {
		b.transition(i, td)
	}
	if len(b.errs) > 0 {
		return
	}
	if err := b.a.Validate(); err != nil {
		b.fail(ErrCodeMalformed, err, "%v", err)
	}
}

func (b *builder[C]) state(sd StateDef) {
	var mods automaton.Modifier
	for _, name := range sd.Modifiers {
		m, ok := automaton.ParseModifier(name)
		if !ok {
			b.fail(ErrCodeModifier, nil, "state %q: unknown modifier %q", sd.Name, name)
			continue
		}
		mods |= m
	}

	var actions []automaton.Action[C]
	for _, sym := range sd.Actions {
		if !b.symbolOK(sym, "state %q action", sd.Name) {
			continue
		}
		act, err := b.f.NewAction(sym.Type, sym.Attr)
		if err != nil {
			b.fail(ErrCodeSymbol, err, "state %q: %v", sd.Name, err)
			continue
		}
		actions = append(actions, act)
	}
	s := b.a.AddState(sd.Name, mods, actions...)

	for _, sp := range sd.Spawns {
		if sp.Automaton != "" && !b.names[sp.Automaton] {
			b.fail(ErrCodeSpawnTarget, nil, "state %q spawns undefined automaton %q", sd.Name, sp.Automaton)
			continue
		}
		var spawner automaton.Spawner[C]
		if sp.Spawner != nil {
			if !b.symbolOK(*sp.Spawner, "state %q spawner", sd.Name) {
				continue
			}
			var err error
			spawner, err = b.f.NewSpawner(sp.Spawner.Type, sp.Spawner.Attr)
			if err != nil {
				b.fail(ErrCodeSymbol, err, "state %q: %v", sd.Name, err)
				continue
			}
		}
		b.a.AddSpawn(s, sp.Automaton, spawner)
	}
}

func (b *builder[C]) transition(i int, td TransitionDef) {
	from, to := b.a.State(td.From), b.a.State(td.To)
	if from == nil {
		b.fail(ErrCodeUnknownState, nil, "transition %d: unknown source state %q", i, td.From)
	}
	if to == nil {
		b.fail(ErrCodeUnknownState, nil, "transition %d: unknown target state %q", i, td.To)
	}
	if from == nil || to == nil {
		return
	}

	switch {
	case td.Default && (td.Guard != nil || td.Timeout != 0):
		b.fail(ErrCodeTransition, nil, "transition %d: default cannot carry a guard or timeout", i)
	case td.Default:
		b.a.AddDefault(from, to)
	case td.Guard == nil && td.Timeout == 0:
		b.fail(ErrCodeTransition, nil, "transition %d (%s -> %s): needs a guard, a timeout or default", i, td.From, td.To)
	case td.Guard == nil:
		b.a.AddTimeout(from, td.Timeout, to)
	default:
		if !b.symbolOK(*td.Guard, "transition %d guard", i) {
			return
		}
		p, err := b.f.NewPredicate(td.Guard.Type, td.Guard.Attr)
		if err != nil {
			b.fail(ErrCodeSymbol, err, "transition %d: %v", i, err)
			return
		}
		deadline := automaton.Infinite
		if td.Timeout != 0 {
			deadline = td.Timeout
		}
		b.a.AddTransition(from, p, deadline, to)
	}
}

// symbolOK reports attribute-only symbols.
func (b *builder[C]) symbolOK(sym SymbolDef, format string, args ...any) bool {
	if sym.Type != "" {
		return true
	}
	what := fmt.Sprintf(format, args...)
	if sym.Attr != "" {
		b.fail(ErrCodeAttrOnly, nil, "%s: attribute %q without a type", what, sym.Attr)
	} else {
		b.fail(ErrCodeSymbol, nil, "%s: empty symbol", what)
	}
	return false
}

// IsLoadError returns true if err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Codes returns the load error codes found in errs, in order.
func Codes(errs []error) []string {
	var out []string
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) {
			out = append(out, le.Code)
		}
	}
	return out
}
