package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while stepping a cursor.
//
// Runtime errors include:
//   - Invariant violation: a compiled index is out of range
//   - Urgent cycle: urgent states kept chaining past the step bound
//   - Action panic: a predicate, action or spawner panicked
//   - Unknown automaton: a spawn directive names an unregistered automaton
//
// A RuntimeError aborts the affected cursor only.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Automaton is the name of the compiled automaton.
	Automaton string

	// Instance is the cursor's instance id.
	Instance string

	// State is the state the cursor was in.
	State string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvariantViolation indicates a corrupted compiled automaton.
	ErrCodeInvariantViolation RuntimeErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeUrgentCycle indicates urgent states chained past the bound.
	ErrCodeUrgentCycle RuntimeErrorCode = "URGENT_CYCLE"

	// ErrCodeActionPanic indicates user code panicked during a step.
	ErrCodeActionPanic RuntimeErrorCode = "ACTION_PANIC"

	// ErrCodeUnknownAutomaton indicates a spawn of an unregistered automaton.
	ErrCodeUnknownAutomaton RuntimeErrorCode = "UNKNOWN_AUTOMATON"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Automaton != "" && e.State != "" {
		return fmt.Sprintf("%s: %s (automaton=%s, state=%s)", e.Code, e.Message, e.Automaton, e.State)
	}
	if e.Automaton != "" {
		return fmt.Sprintf("%s: %s (automaton=%s)", e.Code, e.Message, e.Automaton)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvariantViolation returns true for errors that indicate a broken
// runtime invariant: out-of-range indices or a runaway urgent chain.
// Uses errors.As to handle wrapped errors.
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrCodeInvariantViolation) || hasCode(err, ErrCodeUrgentCycle)
}

// IsUrgentCycle returns true if the error is an urgent chain overflow.
func IsUrgentCycle(err error) bool {
	return hasCode(err, ErrCodeUrgentCycle)
}

// IsActionPanic returns true if user code panicked.
func IsActionPanic(err error) bool {
	return hasCode(err, ErrCodeActionPanic)
}

// NewInvariantError creates a RuntimeError for an out-of-range index.
func NewInvariantError(automaton, instance string, what string, index int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeInvariantViolation,
		Message:   fmt.Sprintf("%s index %d out of range", what, index),
		Automaton: automaton,
		Instance:  instance,
		Details: map[string]string{
			"index": fmt.Sprintf("%d", index),
		},
	}
}

// NewUrgentCycleError creates a RuntimeError for an urgent chain that did
// not settle within limit steps.
func NewUrgentCycleError(automaton, instance, state string, limit int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeUrgentCycle,
		Message:   fmt.Sprintf("urgent chain did not settle within %d steps", limit),
		Automaton: automaton,
		Instance:  instance,
		State:     state,
		Details: map[string]string{
			"max_urgent_steps": fmt.Sprintf("%d", limit),
		},
	}
}
