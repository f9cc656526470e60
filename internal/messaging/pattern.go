package messaging

// Pattern decides whether a message is the one a Select is waiting for.
type Pattern interface {
	Match(m Message) bool
}

// PatternFunc adapts a function to a Pattern.
type PatternFunc func(m Message) bool

func (f PatternFunc) Match(m Message) bool { return f(m) }

// TypePattern matches messages of one type. The empty pattern matches any
// message.
type TypePattern string

func (p TypePattern) Match(m Message) bool {
	return p == "" || m.Is(string(p))
}

// FieldsPattern matches messages of Type (any type when empty) whose
// fields include every entry of Fields.
type FieldsPattern struct {
	Type   string
	Fields map[string]int
}

func (p FieldsPattern) Match(m Message) bool {
	if !TypePattern(p.Type).Match(m) {
		return false
	}
	for k, want := range p.Fields {
		if got, ok := m.Get(k); !ok || got != want {
			return false
		}
	}
	return true
}

// SelectMode chooses how a Select searches a mailbox.
type SelectMode int

const (
	// Anywhere claims the first matching message, skipping others.
	Anywhere SelectMode = iota
	// HeadOnly claims the head message only if it matches.
	HeadOnly
)

func (m SelectMode) String() string {
	if m == HeadOnly {
		return "head"
	}
	return "anywhere"
}
