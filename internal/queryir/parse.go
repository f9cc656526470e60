package queryir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCondition parses one command line condition:
//
//	field=value     equality
//	field!=value    inequality
//	field=a..b      inclusive integer range; b may be omitted
//
// Values are converted to the field's kind.
func ParseCondition(s string) (Predicate, error) {
	field, value, negate := "", "", false
	if f, v, ok := strings.Cut(s, "!="); ok {
		field, value, negate = f, v, true
	} else if f, v, ok := strings.Cut(s, "="); ok {
		field, value = f, v
	} else {
		return nil, fmt.Errorf("condition %q: want field=value", s)
	}
	field = strings.TrimSpace(field)

	kind, ok := Fields[field]
	if !ok {
		return nil, fmt.Errorf("condition %q: unknown field %q", s, field)
	}

	var p Predicate
	if lo, hi, isRange := strings.Cut(value, ".."); isRange && kind == KindInt {
		r, err := parseRange(field, lo, hi)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", s, err)
		}
		p = r
	} else {
		v, err := parseValue(kind, value)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", s, err)
		}
		p = Equals{Field: field, Value: v}
	}
	if negate {
		p = Not{Predicate: p}
	}
	return p, nil
}

// ParseConditions parses each condition and joins them with And. No
// conditions yield a nil predicate.
func ParseConditions(conds []string) (Predicate, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	and := And{Predicates: make([]Predicate, 0, len(conds))}
	for _, c := range conds {
		p, err := ParseCondition(c)
		if err != nil {
			return nil, err
		}
		and.Predicates = append(and.Predicates, p)
	}
	return and, nil
}

func parseRange(field, lo, hi string) (Range, error) {
	r := Range{Field: field, Max: -1}
	var err error
	if r.Min, err = strconv.ParseInt(lo, 10, 64); err != nil {
		return r, fmt.Errorf("range start: %w", err)
	}
	if hi != "" {
		if r.Max, err = strconv.ParseInt(hi, 10, 64); err != nil {
			return r, fmt.Errorf("range end: %w", err)
		}
	}
	return r, nil
}

func parseValue(kind Kind, s string) (any, error) {
	switch kind {
	case KindInt:
		return strconv.ParseInt(s, 10, 64)
	case KindBool:
		return strconv.ParseBool(s)
	default:
		return s, nil
	}
}
