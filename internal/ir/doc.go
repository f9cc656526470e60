// Package ir holds the compiled, index-addressed form of an automaton and
// the canonical JSON encoding used to fingerprint it.
//
// Key design constraints:
//   - every per-state table has exactly one entry per state
//   - states, predicates and guards are referenced by index, never by pointer
//     back into the model
//   - NO float types in canonical JSON; use int for numbers
//   - logical ticks only, never wall-clock timestamps
package ir
