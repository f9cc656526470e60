package automaton

import "strings"

// Modifier is the per-state flag set.
type Modifier uint8

const (
	// Initial marks the state a fresh cursor starts in.
	Initial Modifier = 1 << iota
	// Urgent states are left within the tick they are entered in, when a
	// transition is enabled.
	Urgent
	// Terminate ends the cursor once entered.
	Terminate
	// Spawn states start child automata on entry.
	Spawn
)

var modifierNames = []struct {
	m    Modifier
	name string
}{
	{Initial, "initial"},
	{Urgent, "urgent"},
	{Terminate, "terminate"},
	{Spawn, "spawn"},
}

// Has reports whether every flag in f is set.
func (m Modifier) Has(f Modifier) bool {
	return m&f == f
}

// String renders the set as "initial|urgent", or "-" when empty.
func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m.Has(n.m) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "|")
}

// ParseModifier returns the flag named name ("initial", "urgent",
// "terminate" or "spawn").
func ParseModifier(name string) (Modifier, bool) {
	for _, n := range modifierNames {
		if n.name == name {
			return n.m, true
		}
	}
	return 0, false
}
