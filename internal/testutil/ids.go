// Package testutil holds deterministic helpers shared by tests and the
// conformance harness.
package testutil

import (
	"fmt"
	"sync"
)

// IDSequence generates instance ids "prefix-1", "prefix-2", ... without
// ever running out.
//
// Unlike engine.FixedGenerator, which panics once its list is consumed,
// IDSequence suits runs whose number of cursors is not known in advance,
// such as scenarios that spawn children. Two runs using fresh sequences
// with the same prefix produce identical ids.
//
// Thread-safety: IDSequence is safe for concurrent use via internal mutex.
type IDSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDSequence creates a sequence. An empty prefix defaults to "inst".
func NewIDSequence(prefix string) *IDSequence {
	if prefix == "" {
		prefix = "inst"
	}
	return &IDSequence{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *IDSequence) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence at 1.
func (g *IDSequence) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
