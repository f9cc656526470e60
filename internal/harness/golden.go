package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tima/internal/ir"
	"github.com/roach88/tima/internal/store"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Status       string
	Ticks        int64
	Trace        []store.TraceEvent
	Journal      []string
}

// Canonical converts the snapshot to a value ir.MarshalCanonical accepts.
// Instance ids are left out of trace events.
func (s *TraceSnapshot) Canonical() map[string]any {
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"status":        s.Status,
		"ticks":         s.Ticks,
		"trace":         store.CanonicalTrace(s.Trace),
		"journal":       append([]string{}, s.Journal...),
	}
}

// Snapshot builds the snapshot of result.
func Snapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Status:       result.Status,
		Ticks:        result.Ticks,
		Trace:        result.Trace,
		Journal:      result.Journal,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against the golden file named
// scenarioName, without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot(scenarioName, result)
	data, err := ir.MarshalCanonical(snapshot.Canonical())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
