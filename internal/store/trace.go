package store

import (
	"fmt"
	"sync"

	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/ir"
)

// Run statuses.
const (
	StatusRunning    = "running"
	StatusTerminated = "terminated"
	StatusStopped    = "stopped"
	StatusFailed     = "failed"
)

// Run is one recorded execution.
type Run struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Input string `json:"input"`
	// Automata maps automaton name to its compiled fingerprint.
	Automata      map[string]string `json:"automata"`
	EngineVersion string            `json:"engine_version"`
	FormatVersion string            `json:"format_version"`
	Status        string            `json:"status"`
	Ticks         int64             `json:"ticks"`
	TraceHash     string            `json:"trace_hash,omitempty"`
}

// TraceEvent is the persisted form of an engine.Event. Seq orders events
// within a run.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Tick      int64  `json:"tick"`
	Type      string `json:"type"`
	Instance  string `json:"instance"`
	Key       string `json:"key,omitempty"`
	Automaton string `json:"automaton"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Timeout   bool   `json:"timeout,omitempty"`
	Self      bool   `json:"self,omitempty"`
	Error     string `json:"error,omitempty"`
}

// FromEvent converts an executor event.
func FromEvent(seq int64, ev engine.Event) TraceEvent {
	te := TraceEvent{
		Seq:       seq,
		Tick:      ev.Tick,
		Type:      string(ev.Type),
		Instance:  ev.Instance,
		Key:       ev.Key,
		Automaton: ev.Automaton,
		From:      ev.From,
		To:        ev.To,
		Predicate: ev.Predicate,
		Timeout:   ev.Timeout,
		Self:      ev.Self,
	}
	if ev.Err != nil {
		te.Error = ev.Err.Error()
	}
	return te
}

// String renders the event on one line, e.g.
// "door[k] closed -> open (push)".
func (e TraceEvent) String() string {
	who := e.Automaton
	if e.Key != "" {
		who += "[" + e.Key + "]"
	}
	switch e.Type {
	case string(engine.EventStarted):
		return fmt.Sprintf("%s started in %s", who, e.To)
	case string(engine.EventTransition):
		via := e.Predicate
		if e.Timeout {
			via = "timeout"
		}
		return fmt.Sprintf("%s %s -> %s (%s)", who, e.From, e.To, via)
	case string(engine.EventFault):
		return fmt.Sprintf("%s failed in %s: %s", who, e.From, e.Error)
	default:
		return fmt.Sprintf("%s %s in %s", who, e.Type, e.From)
	}
}

// StatusOf derives a run status from its trace and the number of cursors
// still alive when it stopped.
func StatusOf(events []TraceEvent, live int) string {
	for _, e := range events {
		if e.Type == string(engine.EventFault) {
			return StatusFailed
		}
	}
	if live > 0 {
		return StatusStopped
	}
	return StatusTerminated
}

// Canonical returns the event as a canonical JSON value. The instance id
// is left out; empty fields are omitted.
func (e TraceEvent) Canonical() map[string]any {
	m := map[string]any{
		"seq":       e.Seq,
		"tick":      e.Tick,
		"type":      e.Type,
		"automaton": e.Automaton,
	}
	for k, v := range map[string]string{
		"key":       e.Key,
		"from":      e.From,
		"to":        e.To,
		"predicate": e.Predicate,
		"error":     e.Error,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if e.Timeout {
		m["timeout"] = true
	}
	if e.Self {
		m["self"] = true
	}
	return m
}

// CanonicalTrace returns events as a canonical JSON array.
func CanonicalTrace(events []TraceEvent) []any {
	out := make([]any, len(events))
	for i, e := range events {
		out[i] = e.Canonical()
	}
	return out
}

// HashTrace returns the content hash of events.
func HashTrace(events []TraceEvent) (string, error) {
	return ir.TraceHash(CanonicalTrace(events))
}

// Recorder buffers executor events in emission order. Install Listen with
// engine.WithListener.
//
// Thread-safety: Recorder is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []TraceEvent
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Listen records ev. It has the engine.Listener signature.
func (r *Recorder) Listen(ev engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, FromEvent(int64(len(r.events)+1), ev))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent(nil), r.events...)
}
