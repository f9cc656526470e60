package queryir

import (
	"fmt"
)

// ValidationError describes one problem in a filter.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that every predicate names a known field and carries a
// value of the field's kind. It returns nil for a valid filter; a nil
// filter is valid and matches everything.
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) []ValidationError {
	v := &validator{}
	v.validate(p)
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs []ValidationError
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case Range:
		v.validateRange(pred)
	case *Range:
		v.validateRange(*pred)
	case And:
		for _, q := range pred.Predicates {
			v.validate(q)
		}
	case Or:
		for _, q := range pred.Predicates {
			v.validate(q)
		}
	case Not:
		if pred.Predicate == nil {
			v.add("", "not: missing predicate")
			return
		}
		v.validate(pred.Predicate)
	default:
		v.add("", "unsupported predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	kind, ok := Fields[eq.Field]
	if !ok {
		v.add(eq.Field, "unknown field")
		return
	}
	var valid bool
	switch eq.Value.(type) {
	case string:
		valid = kind == KindString
	case int64:
		valid = kind == KindInt
	case bool:
		valid = kind == KindBool
	}
	if !valid {
		v.add(eq.Field, "value %v (%T) is not a %s", eq.Value, eq.Value, kind)
	}
}

func (v *validator) validateRange(r Range) {
	kind, ok := Fields[r.Field]
	switch {
	case !ok:
		v.add(r.Field, "unknown field")
	case kind != KindInt:
		v.add(r.Field, "range on %s field", kind)
	case r.Max >= 0 && r.Max < r.Min:
		v.add(r.Field, "empty range %d..%d", r.Min, r.Max)
	}
}
