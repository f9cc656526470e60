package messaging

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unique"

	"golang.org/x/text/unicode/norm"
)

// Message is an immutable typed record of named integer fields.
//
// The type tag is NFC normalized and interned, so two messages built from
// canonically equivalent type names compare equal in O(1).
type Message struct {
	typ    unique.Handle[string]
	fields map[string]int
}

func internType(typ string) unique.Handle[string] {
	return unique.Make(norm.NFC.String(typ))
}

// NewMessage creates a message. fields is copied.
func NewMessage(typ string, fields map[string]int) Message {
	return Message{typ: internType(typ), fields: maps.Clone(fields)}
}

// Type returns the type tag.
func (m Message) Type() string { return m.typ.Value() }

// Is reports whether the message has the given type.
func (m Message) Is(typ string) bool { return m.typ == internType(typ) }

// Get returns the value of field f.
func (m Message) Get(f string) (int, bool) {
	v, ok := m.fields[f]
	return v, ok
}

// Fields returns a copy of the fields.
func (m Message) Fields() map[string]int { return maps.Clone(m.fields) }

// String renders the message as "type{a=1 b=2}" with sorted field names.
func (m Message) String() string {
	names := slices.Sorted(maps.Keys(m.fields))
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%d", n, m.fields[n])
	}
	return m.Type() + "{" + strings.Join(parts, " ") + "}"
}

// Transform maps a field value of the trigger message.
type Transform func(int) int

// Offset returns a Transform adding n.
func Offset(n int) Transform { return func(v int) int { return v + n } }

// FieldRule derives field Field of a new message from field Source of the
// trigger message. Source defaults to Field, Transform to the identity.
type FieldRule struct {
	Field     string
	Source    string
	Transform Transform
}

// Merge builds a message from proto, applying rules against trigger. A rule
// whose source field is missing from trigger leaves the prototype's value.
func Merge(proto, trigger Message, rules ...FieldRule) Message {
	out := Message{typ: proto.typ, fields: maps.Clone(proto.fields)}
	for _, r := range rules {
		src := r.Source
		if src == "" {
			src = r.Field
		}
		v, ok := trigger.fields[src]
		if !ok {
			continue
		}
		if r.Transform != nil {
			v = r.Transform(v)
		}
		if out.fields == nil {
			out.fields = make(map[string]int)
		}
		out.fields[r.Field] = v
	}
	return out
}
