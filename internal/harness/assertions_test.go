package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tima/internal/store"
)

func sampleResult() *Result {
	r := NewResult()
	r.Ticks = 4
	r.Trace = []store.TraceEvent{
		{Seq: 1, Type: "started", Instance: "i1", Automaton: "door", To: "closed"},
		{Seq: 2, Tick: 1, Type: "transition", Instance: "i1", Automaton: "door", From: "closed", To: "closed", Predicate: "knock", Self: true},
		{Seq: 3, Tick: 2, Type: "transition", Instance: "i1", Automaton: "door", From: "closed", To: "open", Predicate: "push"},
		{Seq: 4, Tick: 2, Type: "started", Instance: "i2", Key: "k", Automaton: "bell", To: "ring"},
		{Seq: 5, Tick: 4, Type: "transition", Instance: "i1", Automaton: "door", From: "open", To: "closed", Timeout: true},
		{Seq: 6, Tick: 4, Type: "reaped", Instance: "i1", Automaton: "door", From: "closed"},
	}
	r.Journal = []string{"a", "b", "c"}
	r.Counters = map[string]int{"rings": 2}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	failures := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertTraceContains, Automaton: "door", From: "closed", To: "open"},
		{Type: AssertTraceContains, Automaton: "door", Predicate: "knock"},
		{Type: AssertTraceOrder, Automaton: "door", States: []string{"closed", "open", "closed"}},
		{Type: AssertTraceCount, Automaton: "door", To: "closed", Count: 2},
		{Type: AssertTraceCount, Automaton: "bell", Key: "k", Count: 0},
		{Type: AssertFinalState, Automaton: "door", State: "closed"},
		{Type: AssertFinalState, Automaton: "bell", Key: "k", State: "ring"},
		{Type: AssertTerminated, Automaton: "door"},
		{Type: AssertJournal, Lines: []string{"a", "c"}},
		{Type: AssertCounter, Counter: "rings", Count: 2},
		{Type: AssertTicks, Count: 4},
		{Type: AssertNoFaults},
		{Type: AssertTraceWhere, Where: []string{"automaton=door", "type=transition"}, Count: 3},
		{Type: AssertTraceWhere, Where: []string{"tick=2..", "type!=reaped"}, Count: 3},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		assertion Assertion
		want      string
	}{
		{Assertion{Type: AssertTraceContains, Automaton: "door", To: "ajar"}, "not found in trace"},
		{Assertion{Type: AssertTraceOrder, Automaton: "door", States: []string{"open", "open"}}, "entered [closed open closed]"},
		{Assertion{Type: AssertTraceCount, Automaton: "door", Count: 1}, "3 transitions"},
		{Assertion{Type: AssertFinalState, Automaton: "door", State: "open"}, "state closed"},
		{Assertion{Type: AssertFinalState, Automaton: "bell", State: "ring"}, "instance never started"},
		{Assertion{Type: AssertTerminated}, "bell[k] started in ring is still running"},
		{Assertion{Type: AssertTerminated, Automaton: "gate"}, "no instance started"},
		{Assertion{Type: AssertJournal, Lines: []string{"c", "a"}}, "journal lines in order"},
		{Assertion{Type: AssertCounter, Counter: "rings", Count: 3}, "counter rings = 3"},
		{Assertion{Type: AssertTicks, Count: 5}, "4 ticks"},
		{Assertion{Type: AssertTraceWhere, Where: []string{"self=true"}}, "0 event(s) where self=true"},
	}
	for _, tt := range tests {
		t.Run(tt.assertion.Type, func(t *testing.T) {
			failures := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			assert.Contains(t, failures[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_Faults(t *testing.T) {
	r := sampleResult()
	r.Trace = append(r.Trace, store.TraceEvent{Seq: 7, Tick: 4, Type: "fault", Instance: "i2", Key: "k", Automaton: "bell", From: "ring", Error: "boom"})
	failures := EvaluateAssertions(r, []Assertion{{Type: AssertNoFaults}})
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "bell[k] failed in ring: boom")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFinalState,
		Expected: "door in state open",
		Actual:   "state closed",
		Trace:    sampleResult().Trace[2:3],
	}
	assert.Equal(t,
		"Assertion failed: final_state\n"+
			"  Expected: door in state open\n"+
			"  Actual: state closed\n"+
			"\nFull trace:\n"+
			"  [3] tick 2 door closed -> open (push)\n",
		err.Error())
}
