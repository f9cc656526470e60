package messaging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/factory"
)

const (
	selectPrefix = "?"
	sendPrefix   = "!"
)

// Factory resolves messaging symbols and delegates every other name to a
// factory for U, lifting the result.
type Factory[U any] struct {
	base   factory.Factory[U]
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]any
}

// NewFactory wraps base. A nil logger means slog.Default().
func NewFactory[U any](base factory.Factory[U], logger *slog.Logger) *Factory[U] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory[U]{base: base, logger: logger, cache: make(map[string]any)}
}

// NewPredicate implements factory.Factory.
func (f *Factory[U]) NewPredicate(typ, attr string) (automaton.Predicate[*Env[U]], error) {
	return cached(f, "p", typ, attr, func() (automaton.Predicate[*Env[U]], error) {
		if msgType, ok := strings.CutPrefix(typ, selectPrefix); ok {
			p, mode, err := parseSelect(msgType, attr)
			if err != nil {
				return nil, unresolvable(factory.KindPredicate, typ, attr, err)
			}
			return Select[U](typ, p, mode), nil
		}
		p, err := f.base.NewPredicate(typ, attr)
		if err != nil {
			return nil, err
		}
		return Lift(p), nil
	})
}

// NewAction implements factory.Factory.
func (f *Factory[U]) NewAction(typ, attr string) (automaton.Action[*Env[U]], error) {
	return cached(f, "a", typ, attr, func() (automaton.Action[*Env[U]], error) {
		if msgType, ok := strings.CutPrefix(typ, sendPrefix); ok {
			s, err := parseSend[U](msgType, attr)
			if err != nil {
				return nil, unresolvable(factory.KindAction, typ, attr, err)
			}
			s.Name = typ
			s.Logger = f.logger
			return s, nil
		}
		a, err := f.base.NewAction(typ, attr)
		if err != nil {
			return nil, err
		}
		return LiftAction(a), nil
	})
}

// NewSpawner implements factory.Factory.
func (f *Factory[U]) NewSpawner(typ, attr string) (automaton.Spawner[*Env[U]], error) {
	return cached(f, "s", typ, attr, func() (automaton.Spawner[*Env[U]], error) {
		s, err := f.base.NewSpawner(typ, attr)
		if err != nil {
			return nil, err
		}
		return LiftSpawner(s), nil
	})
}

func cached[U any, T any](f *Factory[U], kind, typ, attr string, build func() (T, error)) (T, error) {
	key := kind + "\x00" + typ + "\x00" + attr
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.cache[key]; ok {
		return v.(T), nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	f.cache[key] = v
	return v, nil
}

func unresolvable(kind factory.Kind, typ, attr string, err error) error {
	return &factory.UnresolvableSymbolError{Kind: kind, Type: typ, Attr: attr, Err: err}
}

// attrItems splits "a=1, b, c=x+2" into trimmed items.
func attrItems(attr string) []string {
	var out []string
	for _, item := range strings.Split(attr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseSelect(msgType, attr string) (Pattern, SelectMode, error) {
	mode := Anywhere
	fields := map[string]int{}
	for _, item := range attrItems(attr) {
		if item == "head" {
			mode = HeadOnly
			continue
		}
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, mode, fmt.Errorf("unknown select option %q", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, mode, fmt.Errorf("field %q: %w", name, err)
		}
		fields[strings.TrimSpace(name)] = n
	}
	if len(fields) == 0 {
		return TypePattern(msgType), mode, nil
	}
	return FieldsPattern{Type: msgType, Fields: fields}, mode, nil
}

func parseSend[U any](msgType, attr string) (*SendAction[U], error) {
	s := &SendAction[U]{To: Self()}
	proto := map[string]int{}
	for _, item := range attrItems(attr) {
		name, value, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("send option %q is not name=value", item)
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if name == "to" {
			s.To = parseDestination(value)
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			proto[name] = n
			continue
		}
		rule, err := parseRule(name, value)
		if err != nil {
			return nil, err
		}
		s.Rules = append(s.Rules, rule)
	}
	if msgType == "" {
		return nil, fmt.Errorf("send without message type")
	}
	s.Proto = NewMessage(msgType, proto)
	return s, nil
}

func parseDestination(v string) Destination {
	switch v {
	case "self":
		return Self()
	case "parent":
		return Parent()
	}
	return To(v)
}

// parseRule parses "src", "src+N" or "src-N".
func parseRule(field, expr string) (FieldRule, error) {
	if i := strings.LastIndexAny(expr, "+-"); i > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(expr[i:]))
		if err != nil {
			return FieldRule{}, fmt.Errorf("field %q: bad offset in %q", field, expr)
		}
		src := strings.TrimSpace(expr[:i])
		if !isIdent(src) {
			return FieldRule{}, fmt.Errorf("field %q: bad source %q", field, src)
		}
		return FieldRule{Field: field, Source: src, Transform: Offset(n)}, nil
	}
	if !isIdent(expr) {
		return FieldRule{}, fmt.Errorf("field %q: bad source %q", field, expr)
	}
	return FieldRule{Field: field, Source: expr}, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

var _ factory.Factory[*Env[int]] = (*Factory[int])(nil)
