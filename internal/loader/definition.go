package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the top level of a YAML definition file.
type Document struct {
	Automata []Definition `yaml:"automata" json:"automata"`
}

// Definition describes one automaton.
type Definition struct {
	Name        string          `yaml:"name" json:"name"`
	States      []StateDef      `yaml:"states" json:"states"`
	Transitions []TransitionDef `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// StateDef describes one state.
type StateDef struct {
	Name      string      `yaml:"name" json:"name"`
	Modifiers []string    `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Actions   []SymbolDef `yaml:"actions,omitempty" json:"actions,omitempty"`
	Spawns    []SpawnDef  `yaml:"spawn,omitempty" json:"spawn,omitempty"`
}

// SpawnDef starts Automaton when its state is entered. Spawner computes the
// child key; without one the child is unkeyed.
type SpawnDef struct {
	Automaton string     `yaml:"automaton" json:"automaton"`
	Spawner   *SymbolDef `yaml:"spawner,omitempty" json:"spawner,omitempty"`
}

// TransitionDef describes one transition.
type TransitionDef struct {
	From    string     `yaml:"from" json:"from"`
	To      string     `yaml:"to" json:"to"`
	Guard   *SymbolDef `yaml:"guard,omitempty" json:"guard,omitempty"`
	Timeout int        `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Default bool       `yaml:"default,omitempty" json:"default,omitempty"`
}

// SymbolDef names a factory symbol and its attribute.
type SymbolDef struct {
	Type string `yaml:"type" json:"type"`
	Attr string `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// ParseSymbol splits the "type:attr" shorthand. Messaging names keep their
// prefix: "?ping:head" is type "?ping" with attr "head".
func ParseSymbol(s string) SymbolDef {
	typ, attr, _ := strings.Cut(s, ":")
	return SymbolDef{Type: strings.TrimSpace(typ), Attr: strings.TrimSpace(attr)}
}

// String renders the shorthand form.
func (s SymbolDef) String() string {
	if s.Attr == "" {
		return s.Type
	}
	return s.Type + ":" + s.Attr
}

// symbolFields avoids recursing into UnmarshalYAML/UnmarshalJSON.
type symbolFields SymbolDef

// UnmarshalYAML accepts a "type:attr" scalar or a mapping.
func (s *SymbolDef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*s = ParseSymbol(raw)
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: symbol must be a string or a mapping", node.Line)
	}
	var f symbolFields
	if err := node.Decode(&f); err != nil {
		return err
	}
	*s = SymbolDef(f)
	return nil
}

// UnmarshalJSON accepts a "type:attr" string or an object.
func (s *SymbolDef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s = ParseSymbol(raw)
		return nil
	}
	var f symbolFields
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("symbol must be a string or an object: %w", err)
	}
	*s = SymbolDef(f)
	return nil
}
