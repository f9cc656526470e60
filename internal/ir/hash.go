package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCompiled = "tima/compiled/v1"
	DomainTrace    = "tima/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical returns the compiled tables as a canonical JSON value. Actions
// and predicates are represented by their type names.
func (c *Compiled[C]) Canonical() map[string]any {
	states := make([]any, len(c.states))
	for i, s := range c.states {
		actions := make([]any, len(s.Actions))
		for j, a := range s.Actions {
			actions[j] = a.Type()
		}
		spawns := make([]any, len(s.Spawns))
		for j, d := range s.Spawns {
			spawns[j] = d.Automaton
		}
		guards := make([]any, len(c.guarded[i]))
		for j, g := range c.guarded[i] {
			guards[j] = map[string]any{"predicate": g.Predicate, "target": g.Target}
		}
		states[i] = map[string]any{
			"name":             s.Name,
			"modifiers":        int(s.Modifiers),
			"actions":          actions,
			"spawns":           spawns,
			"synthetic":        c.synthetic[i],
			"origin":           c.origin[i],
			"guards":           guards,
			"timeout_deadline": c.timeoutDeadline[i],
			"timeout_target":   c.timeoutTarget[i],
		}
	}
	predicates := make([]any, len(c.predicates))
	for i, p := range c.predicates {
		predicates[i] = p.Type()
	}
	return map[string]any{
		"name":       c.name,
		"format":     FormatVersion,
		"initial":    c.initial,
		"states":     states,
		"predicates": predicates,
	}
}

// Fingerprint is the content hash of the compiled tables. Two compilations
// of the same definition produce the same fingerprint.
func (c *Compiled[C]) Fingerprint() (string, error) {
	data, err := MarshalCanonical(c.Canonical())
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", c.name, err)
	}
	return hashWithDomain(DomainCompiled, data), nil
}

// TraceHash is the content hash of a canonical trace value, used to
// compare runs for determinism.
func TraceHash(trace any) (string, error) {
	data, err := MarshalCanonical(trace)
	if err != nil {
		return "", fmt.Errorf("trace hash: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}
