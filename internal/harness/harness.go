package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/ir"
	"github.com/roach88/tima/internal/loader"
	"github.com/roach88/tima/internal/store"
	"github.com/roach88/tima/internal/testutil"
)

// Option configures Run.
type Option func(*options)

type options struct {
	store  *store.Store
	logger *slog.Logger
}

// WithStore persists the run and its trace to st.
func WithStore(st *store.Store) Option {
	return func(o *options) { o.store = st }
}

// WithLogger sets the logger handed to the compiler and executor. Logs are
// discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load definitions and build them against a fresh charstream registry
//  2. Start the listed instances
//  3. Step until every cursor is done or MaxTicks is reached
//  4. Evaluate assertions against the trace and journal
//
// An error is returned when the scenario cannot be executed at all.
// Cursor faults are part of the trace, not errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	ctx := context.Background()

	defs, err := definitions(scenario)
	if err != nil {
		return nil, err
	}

	journal := charstream.NewJournal(nil)
	symbols := charstream.Symbols(journal, o.logger)
	compiled, errs := loader.BuildCompiled[charstream.Input](defs, symbols, loader.LoadModeFailFast, compiler.WithLogger(o.logger))
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to build automata: %w", errors.Join(errs...))
	}

	rec := store.NewRecorder()
	ex := engine.NewExecutor[charstream.Input](charstream.New(scenario.Input),
		engine.WithIDGenerator(testutil.NewIDSequence("inst")),
		engine.WithListener(rec.Listen),
		engine.WithLogger(o.logger),
	)
	ex.Register(compiled...)

	start := scenario.Start
	if len(start) == 0 {
		start = []StartStep{{Automaton: compiled[0].Name()}}
	}
	for i, step := range start {
		if _, ok := ex.Automaton(step.Automaton); !ok {
			return nil, fmt.Errorf("start[%d]: unknown automaton %q", i, step.Automaton)
		}
	}

	var runID string
	if o.store != nil {
		runID, err = createRun(ctx, o.store, scenario, compiled)
		if err != nil {
			return nil, err
		}
	}

	// Faults surface as trace events and fail no_faults assertions.
	for _, step := range start {
		_ = ex.StartNamed(step.Automaton, step.Key)
	}
	maxTicks := scenario.MaxTicks
	if maxTicks == 0 {
		maxTicks = DefaultMaxTicks
	}
	_ = ex.Run(ctx, maxTicks)

	result := NewResult()
	result.Ticks = ex.Tick()
	result.Trace = rec.Events()
	result.Journal = journal.Lines()
	result.Counters = journal.Counts()
	result.Status = store.StatusOf(result.Trace, len(ex.Cursors()))

	if o.store != nil {
		if err := persist(ctx, o.store, runID, result); err != nil {
			return nil, err
		}
		result.RunID = runID
	}

	o.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"ticks", result.Ticks,
		"events", len(result.Trace),
		"status", result.Status,
	)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func definitions(s *Scenario) ([]loader.Definition, error) {
	var defs []loader.Definition
	for _, path := range s.Definitions {
		d, err := loader.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load definitions: %w", err)
		}
		defs = append(defs, d...)
	}
	defs = append(defs, s.Automata...)
	if len(defs) == 0 {
		return nil, fmt.Errorf("scenario %q defines no automata", s.Name)
	}
	return defs, nil
}

func createRun(ctx context.Context, st *store.Store, s *Scenario, compiled []*ir.Compiled[charstream.Input]) (string, error) {
	fingerprints := make(map[string]string, len(compiled))
	for _, c := range compiled {
		fp, err := c.Fingerprint()
		if err != nil {
			return "", err
		}
		fingerprints[c.Name()] = fp
	}
	id, err := st.CreateRun(ctx, store.Run{Name: s.Name, Input: s.Input, Automata: fingerprints})
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

func persist(ctx context.Context, st *store.Store, runID string, r *Result) error {
	if err := st.WriteTrace(ctx, runID, r.Trace); err != nil {
		return fmt.Errorf("failed to record trace: %w", err)
	}
	hash, err := store.HashTrace(r.Trace)
	if err != nil {
		return err
	}
	if err := st.FinishRun(ctx, runID, r.Status, r.Ticks, hash); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
