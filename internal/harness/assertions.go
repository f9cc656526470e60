package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/queryir"
	"github.com/roach88/tima/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string             // Assertion type for categorization
	Expected string             // Human-readable expected outcome
	Actual   string             // Human-readable actual outcome
	Trace    []store.TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] tick %d %s\n", ev.Seq, ev.Tick, ev.String())
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the messages of
// those that failed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(r.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(r.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(r.Trace, a)
	case AssertFinalState:
		return assertFinalState(r.Trace, a)
	case AssertTerminated:
		return assertTerminated(r.Trace, a)
	case AssertJournal:
		return assertJournal(r.Journal, a)
	case AssertCounter:
		if got := r.Counters[a.Counter]; got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("counter %s = %d", a.Counter, a.Count),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
	case AssertTicks:
		if r.Ticks != int64(a.Count) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d ticks", a.Count),
				Actual:   fmt.Sprintf("%d ticks", r.Ticks),
			}
		}
	case AssertTraceWhere:
		return assertTraceWhere(r.Trace, a)
	case AssertNoFaults:
		for _, ev := range r.Trace {
			if ev.Type == string(engine.EventFault) {
				return &AssertionError{Type: a.Type, Expected: "no faults", Actual: ev.String(), Trace: r.Trace}
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// instance reports whether ev belongs to the instance selected by a.
func instance(ev store.TraceEvent, a Assertion) bool {
	return ev.Automaton == a.Automaton && ev.Key == a.Key
}

// transitionMatches reports whether ev is a transition of the selected
// instance matching every non-empty filter of a.
func transitionMatches(ev store.TraceEvent, a Assertion) bool {
	return ev.Type == string(engine.EventTransition) &&
		instance(ev, a) &&
		(a.From == "" || ev.From == a.From) &&
		(a.To == "" || ev.To == a.To) &&
		(a.Predicate == "" || ev.Predicate == a.Predicate)
}

func filterDesc(a Assertion) string {
	parts := []string{"automaton=" + a.Automaton}
	if a.Key != "" {
		parts = append(parts, "key="+a.Key)
	}
	for _, f := range [][2]string{{"from", a.From}, {"to", a.To}, {"predicate", a.Predicate}} {
		if f[1] != "" {
			parts = append(parts, f[0]+"="+f[1])
		}
	}
	return strings.Join(parts, " ")
}

func assertTraceContains(trace []store.TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if transitionMatches(ev, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: "transition " + filterDesc(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertTraceCount(trace []store.TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if transitionMatches(ev, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d transitions %s", a.Count, filterDesc(a)),
			Actual:   fmt.Sprintf("%d transitions", count),
			Trace:    trace,
		}
	}
	return nil
}

// entered returns the states the selected instance entered, in order.
// Self-transitions do not enter a state.
func entered(trace []store.TraceEvent, a Assertion) []string {
	var states []string
	for _, ev := range trace {
		if !instance(ev, a) {
			continue
		}
		switch {
		case ev.Type == string(engine.EventStarted):
			states = append(states, ev.To)
		case ev.Type == string(engine.EventTransition) && !ev.Self:
			states = append(states, ev.To)
		}
	}
	return states
}

// assertTraceOrder checks that States appear in order among the entered
// states. Intervening states are allowed.
func assertTraceOrder(trace []store.TraceEvent, a Assertion) error {
	got := entered(trace, a)
	if !subsequence(got, a.States) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s to enter %v in order", a.Automaton, a.States),
			Actual:   fmt.Sprintf("entered %v", got),
			Trace:    trace,
		}
	}
	return nil
}

func assertFinalState(trace []store.TraceEvent, a Assertion) error {
	got := entered(trace, a)
	if len(got) == 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s in state %s", a.Automaton, a.State),
			Actual:   "instance never started",
			Trace:    trace,
		}
	}
	if last := got[len(got)-1]; last != a.State {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s in state %s", a.Automaton, a.State),
			Actual:   "state " + last,
			Trace:    trace,
		}
	}
	return nil
}

// assertTerminated checks that the selected instance, or without
// Automaton every started instance, was reaped.
func assertTerminated(trace []store.TraceEvent, a Assertion) error {
	started := map[string]store.TraceEvent{}
	var order []string
	reaped := map[string]bool{}
	for _, ev := range trace {
		if a.Automaton != "" && !instance(ev, a) {
			continue
		}
		switch ev.Type {
		case string(engine.EventStarted):
			started[ev.Instance] = ev
			order = append(order, ev.Instance)
		case string(engine.EventReaped):
			reaped[ev.Instance] = true
		}
	}
	if len(order) == 0 {
		return &AssertionError{Type: a.Type, Expected: "a terminated instance", Actual: "no instance started", Trace: trace}
	}
	for _, id := range order {
		if !reaped[id] {
			ev := started[id]
			return &AssertionError{
				Type:     a.Type,
				Expected: "every instance terminated",
				Actual:   ev.String() + " is still running",
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertJournal(journal []string, a Assertion) error {
	if !subsequence(journal, a.Lines) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("journal lines in order: %q", a.Lines),
			Actual:   fmt.Sprintf("%q", journal),
		}
	}
	return nil
}

// subsequence reports whether want appears in got in order.
func subsequence(got, want []string) bool {
	i := 0
	for _, g := range got {
		if i < len(want) && g == want[i] {
			i++
		}
	}
	return i == len(want)
}

func assertTraceWhere(trace []store.TraceEvent, a Assertion) error {
	filter, err := queryir.ParseConditions(a.Where)
	if err != nil {
		return err
	}
	if got := len(store.Filter(trace, filter)); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d event(s) where %s", a.Count, strings.Join(a.Where, ", ")),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    trace,
		}
	}
	return nil
}
