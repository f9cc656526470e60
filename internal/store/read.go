package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, name, input, automata, engine_version, format_version, status, ticks, trace_hash`

// GetRun returns a run by id, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns every run in insertion order.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns the events of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]TraceEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, tick, type, instance, key, automaton, from_state, to_state, predicate, timeout, self, error
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadInstance returns the events of one cursor instance of a run.
func (s *Store) ReadInstance(ctx context.Context, runID, instance string) ([]TraceEvent, error) {
	return s.queryEvents(ctx, `
		SELECT seq, tick, type, instance, key, automaton, from_state, to_state, predicate, timeout, self, error
		FROM trace_events
		WHERE run_id = ? AND instance = ?
		ORDER BY seq ASC
	`, runID, instance)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []TraceEvent{}
	for rows.Next() {
		var e TraceEvent
		if err := rows.Scan(
			&e.Seq, &e.Tick, &e.Type, &e.Instance, &e.Key, &e.Automaton,
			&e.From, &e.To, &e.Predicate, &e.Timeout, &e.Self, &e.Error,
		); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var automata string
	if err := row.Scan(
		&run.ID, &run.Name, &run.Input, &automata,
		&run.EngineVersion, &run.FormatVersion, &run.Status, &run.Ticks, &run.TraceHash,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	m, err := unmarshalAutomata(automata)
	if err != nil {
		return Run{}, err
	}
	run.Automata = m
	return run, nil
}
