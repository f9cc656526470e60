package queryir

// Predicate is a condition on a trace event.
//
// Implementations: Equals, Range, And, Or, Not. The marker method seals
// the interface to this package.
type Predicate interface {
	predicateNode()
}

// Equals matches events whose Field equals Value. Value must be a string,
// an int64 or a bool matching the field's kind.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Range matches events whose integer Field lies in [Min, Max]. A negative
// Max leaves the range open.
type Range struct {
	Field string
	Min   int64
	Max   int64
}

func (Range) predicateNode() {}

// And matches when every predicate matches (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or matches when any predicate matches (empty = never).
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not inverts a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Kind is the value kind of an event field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// Fields lists the filterable trace event fields.
var Fields = map[string]Kind{
	"seq":       KindInt,
	"tick":      KindInt,
	"type":      KindString,
	"instance":  KindString,
	"key":       KindString,
	"automaton": KindString,
	"from":      KindString,
	"to":        KindString,
	"predicate": KindString,
	"timeout":   KindBool,
	"self":      KindBool,
	"error":     KindString,
}

// Event is the field view Match evaluates predicates against.
type Event interface {
	Field(name string) (any, bool)
}
