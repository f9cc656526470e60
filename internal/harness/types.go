package harness

import "github.com/roach88/tima/internal/store"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Status is the run outcome, one of the store.Status* values.
	Status string `json:"status"`

	// Ticks is the number of ticks stepped.
	Ticks int64 `json:"ticks"`

	// Trace contains every executor event in order.
	Trace []store.TraceEvent `json:"trace"`

	// Journal contains the lines written by log actions.
	Journal []string `json:"journal"`

	// Counters contains the values of count actions.
	Counters map[string]int `json:"counters,omitempty"`

	// RunID is set when the run was persisted.
	RunID string `json:"run_id,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []store.TraceEvent{},
		Journal:  []string{},
		Counters: make(map[string]int),
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
