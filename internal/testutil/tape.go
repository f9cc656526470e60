package testutil

import (
	"sync"

	"github.com/roach88/tima/internal/automaton"
)

// Tape records hook invocations as "hook:name" entries, optionally
// prefixed by the instance key ("key hook:name").
//
// Thread-safety: Tape is safe for concurrent use.
type Tape struct {
	mu      sync.Mutex
	entries []string
}

func (t *Tape) add(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (t *Tape) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.entries...)
}

// Reset clears the tape.
func (t *Tape) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
}

// RecordingAction returns an action named name writing its Pre, Each and
// Post calls to tape.
func RecordingAction[C any](tape *Tape, name string) automaton.Action[C] {
	record := func(hook string) func(C, string) {
		return func(_ C, key string) {
			entry := hook + ":" + name
			if key != "" {
				entry = key + " " + entry
			}
			tape.add(entry)
		}
	}
	return &automaton.ActionFuncs[C]{
		Name:   name,
		OnPre:  record("pre"),
		OnEach: record("each"),
		OnPost: record("post"),
	}
}
