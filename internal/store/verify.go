package store

import (
	"context"
	"fmt"
)

// TraceMismatchError reports a stored trace whose hash differs from the
// hash recorded when the run finished.
type TraceMismatchError struct {
	RunID    string
	Recorded string
	Computed string
}

func (e *TraceMismatchError) Error() string {
	return fmt.Sprintf("run %s: trace hash %s does not match recorded %s", e.RunID, e.Computed, e.Recorded)
}

// VerifyTrace recomputes the hash of a finished run's stored events and
// compares it with the recorded one. Runs without a recorded hash are not
// checked.
func (s *Store) VerifyTrace(ctx context.Context, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.TraceHash == "" {
		return nil
	}
	events, err := s.ReadTrace(ctx, runID)
	if err != nil {
		return err
	}
	got, err := HashTrace(events)
	if err != nil {
		return fmt.Errorf("verify trace: %w", err)
	}
	if got != run.TraceHash {
		return &TraceMismatchError{RunID: runID, Recorded: run.TraceHash, Computed: got}
	}
	return nil
}
