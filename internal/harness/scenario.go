package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tima/internal/loader"
	"github.com/roach88/tima/internal/queryir"
)

// DefaultMaxTicks bounds scenarios that do not set max_ticks.
const DefaultMaxTicks = 1000

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definitions lists YAML or CUE definition files (or CUE package
	// directories). Paths are relative to the scenario file location.
	Definitions []string `yaml:"definitions,omitempty"`

	// Automata holds inline definitions, loaded after Definitions.
	Automata []loader.Definition `yaml:"automata,omitempty"`

	// Input is fed one character per tick.
	Input string `yaml:"input"`

	// Start lists the instances started before the first tick, in order.
	// When empty the first defined automaton is started unkeyed.
	Start []StartStep `yaml:"start,omitempty"`

	// MaxTicks bounds the run. Zero means DefaultMaxTicks.
	MaxTicks int64 `yaml:"max_ticks,omitempty"`

	// Assertions validate the trace and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// StartStep starts one instance.
type StartStep struct {
	Automaton string `yaml:"automaton"`
	Key       string `yaml:"key,omitempty"`
}

// Assertion validates the outcome of a run. Which fields apply depends on
// Type; see the Assert* constants.
type Assertion struct {
	Type string `yaml:"type"`

	// Instance selection (trace assertions). Key is matched exactly, so
	// the empty key selects unkeyed instances.
	Automaton string `yaml:"automaton,omitempty"`
	Key       string `yaml:"key,omitempty"`

	// Transition filters (trace_contains, trace_count). Empty fields match
	// anything.
	From      string `yaml:"from,omitempty"`
	To        string `yaml:"to,omitempty"`
	Predicate string `yaml:"predicate,omitempty"`

	// State is the expected final state (final_state).
	State string `yaml:"state,omitempty"`

	// States is the expected order of entered states (trace_order).
	States []string `yaml:"states,omitempty"`

	// Lines is the expected order of journal lines (journal).
	Lines []string `yaml:"lines,omitempty"`

	// Counter names a journal counter (counter).
	Counter string `yaml:"counter,omitempty"`

	// Count is the expected number (trace_count, trace_where, counter,
	// ticks).
	Count int `yaml:"count,omitempty"`

	// Where holds event conditions such as "type=fault" or "tick=2..4"
	// (trace_where).
	Where []string `yaml:"where,omitempty"`
}

// Assertion type constants.
const (
	// AssertTraceContains: a transition matching the filters happened.
	AssertTraceContains = "trace_contains"
	// AssertTraceOrder: the instance entered States in this order, other
	// states may occur in between.
	AssertTraceOrder = "trace_order"
	// AssertTraceCount: exactly Count transitions match the filters.
	AssertTraceCount = "trace_count"
	// AssertFinalState: the instance's last state is State.
	AssertFinalState = "final_state"
	// AssertTerminated: the instance terminated; without Automaton, every
	// started instance did.
	AssertTerminated = "terminated"
	// AssertJournal: Lines appear in the journal in this order.
	AssertJournal = "journal"
	// AssertCounter: journal counter Counter equals Count.
	AssertCounter = "counter"
	// AssertTicks: the run took exactly Count ticks.
	AssertTicks = "ticks"
	// AssertNoFaults: no cursor failed.
	AssertNoFaults = "no_faults"
	// AssertTraceWhere: exactly Count events of any type satisfy Where.
	AssertTraceWhere = "trace_where"
)

// LoadScenario reads and parses a scenario YAML file. Definition paths are
// resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving definition paths against
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	for i, p := range scenario.Definitions {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Definitions[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Definitions) == 0 && len(s.Automata) == 0 {
		return fmt.Errorf("definitions or automata are required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must be non-negative")
	}

	for _, p := range s.Definitions {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("definition file not found: %s", p)
		}
	}

	for i, step := range s.Start {
		if step.Automaton == "" {
			return fmt.Errorf("start[%d]: automaton is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needAutomaton := func() error {
		if a.Automaton == "" {
			return fmt.Errorf("assertions[%d]: automaton is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertTraceContains:
		return needAutomaton()
	case AssertTraceOrder:
		if len(a.States) == 0 {
			return fmt.Errorf("assertions[%d]: states list is required for trace_order", index)
		}
		return needAutomaton()
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		return needAutomaton()
	case AssertFinalState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for final_state", index)
		}
		return needAutomaton()
	case AssertJournal:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for journal", index)
		}
	case AssertCounter:
		if a.Counter == "" {
			return fmt.Errorf("assertions[%d]: counter is required for counter", index)
		}
	case AssertTraceWhere:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where list is required for trace_where", index)
		}
		if _, err := queryir.ParseConditions(a.Where); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertTicks, AssertTerminated, AssertNoFaults:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
