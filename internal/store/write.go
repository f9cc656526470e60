package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/tima/internal/ir"
)

// CreateRun inserts a run record and returns its id. A UUIDv7 id is
// generated when run.ID is empty; version columns default to the running
// engine's.
func (s *Store) CreateRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("create run: %w", err)
		}
		run.ID = id.String()
	}
	if run.EngineVersion == "" {
		run.EngineVersion = ir.EngineVersion
	}
	if run.FormatVersion == "" {
		run.FormatVersion = ir.FormatVersion
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}

	automata, err := marshalAutomata(run.Automata)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, input, automata, engine_version, format_version, status, ticks, trace_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Name,
		run.Input,
		automata,
		run.EngineVersion,
		run.FormatVersion,
		run.Status,
		run.Ticks,
		run.TraceHash,
	)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return run.ID, nil
}

// WriteTrace appends events to a run in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting an event with an
// existing seq is silently ignored.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteTrace(ctx context.Context, runID string, events []TraceEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, tick, type, instance, key, automaton, from_state, to_state, predicate, timeout, self, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			runID,
			e.Seq,
			e.Tick,
			e.Type,
			e.Instance,
			e.Key,
			e.Automaton,
			e.From,
			e.To,
			e.Predicate,
			boolInt(e.Timeout),
			boolInt(e.Self),
			e.Error,
		); err != nil {
			return fmt.Errorf("write trace event %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, ticks int64, traceHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, ticks = ?, trace_hash = ?
		WHERE id = ?
	`, status, ticks, traceHash, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	s.logger.Debug("run finished", "run", runID, "status", status, "ticks", ticks)
	return nil
}
