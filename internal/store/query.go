package store

import (
	"context"
	"fmt"

	"github.com/roach88/tima/internal/queryir"
	"github.com/roach88/tima/internal/querysql"
)

// QueryTrace returns the events of a run matching filter, ordered by seq.
// A nil filter returns the whole trace.
func (s *Store) QueryTrace(ctx context.Context, runID string, filter queryir.Predicate) ([]TraceEvent, error) {
	where, params, err := querysql.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	args := append([]any{runID}, params...)
	return s.queryEvents(ctx, `
		SELECT seq, tick, type, instance, key, automaton, from_state, to_state, predicate, timeout, self, error
		FROM trace_events
		WHERE run_id = ? AND (`+where+`)
		ORDER BY seq ASC
	`, args...)
}

// Field implements queryir.Event.
func (e TraceEvent) Field(name string) (any, bool) {
	switch name {
	case "seq":
		return e.Seq, true
	case "tick":
		return e.Tick, true
	case "type":
		return e.Type, true
	case "instance":
		return e.Instance, true
	case "key":
		return e.Key, true
	case "automaton":
		return e.Automaton, true
	case "from":
		return e.From, true
	case "to":
		return e.To, true
	case "predicate":
		return e.Predicate, true
	case "timeout":
		return e.Timeout, true
	case "self":
		return e.Self, true
	case "error":
		return e.Error, true
	default:
		return nil, false
	}
}

// Filter returns the events matching filter, keeping their order.
func Filter(events []TraceEvent, filter queryir.Predicate) []TraceEvent {
	out := []TraceEvent{}
	for _, e := range events {
		if queryir.Match(filter, e) {
			out = append(out, e)
		}
	}
	return out
}
