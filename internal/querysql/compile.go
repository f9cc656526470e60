// Package querysql compiles trace filters to parameterized SQLite.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/tima/internal/queryir"
)

// Columns maps filter fields to trace_events columns.
var Columns = map[string]string{
	"seq":       "seq",
	"tick":      "tick",
	"type":      "type",
	"instance":  "instance",
	"key":       "key",
	"automaton": "automaton",
	"from":      "from_state",
	"to":        "to_state",
	"predicate": "predicate",
	"timeout":   "timeout",
	"self":      "self",
	"error":     "error",
}

// Compile converts a filter to a WHERE clause fragment and its parameters.
// A nil filter compiles to "1 = 1".
//
// CRITICAL: values are never interpolated; every value is a ? parameter.
// Column names come from Columns only.
func Compile(p queryir.Predicate) (string, []any, error) {
	if errs := queryir.Validate(p); len(errs) > 0 {
		return "", nil, fmt.Errorf("invalid filter: %w", errs[0])
	}
	return compilePredicate(p)
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.Range:
		return compileRange(pred)
	case *queryir.Range:
		return compileRange(*pred)
	case queryir.And:
		return compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return compileJunction(pred.Predicates, " OR ", "1 = 0")
	case queryir.Not:
		sql, params, err := compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles "column = ?". Booleans are stored as integers.
func compileEquals(eq queryir.Equals) (string, []any, error) {
	col := Columns[eq.Field]
	v := eq.Value
	if b, ok := v.(bool); ok {
		v = 0
		if b {
			v = 1
		}
	}
	return col + " = ?", []any{v}, nil
}

func compileRange(r queryir.Range) (string, []any, error) {
	col := Columns[r.Field]
	if r.Max < 0 {
		return col + " >= ?", []any{r.Min}, nil
	}
	return col + " BETWEEN ? AND ?", []any{r.Min, r.Max}, nil
}

// compileJunction joins predicates with op. empty is the identity.
func compileJunction(preds []queryir.Predicate, op, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, ps...)
	}
	return strings.Join(parts, op), params, nil
}
