package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/engine"
	"github.com/roach88/tima/internal/ir"
	"github.com/roach88/tima/internal/loader"
	"github.com/roach88/tima/internal/messaging"
	"github.com/roach88/tima/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input    string
	Start    []string
	MaxTicks int64
	Database string

	// IDs overrides the instance id generator (for testing). If nil,
	// defaults to UUIDv7Generator.
	IDs engine.IDGenerator
}

// RunResult summarises a run.
type RunResult struct {
	RunID       string         `json:"run_id,omitempty"`
	Status      string         `json:"status"`
	Ticks       int64          `json:"ticks"`
	Events      int            `json:"events"`
	Faults      int            `json:"faults"`
	TraceHash   string         `json:"trace_hash"`
	Journal     []string       `json:"journal"`
	Counters    map[string]int `json:"counters,omitempty"`
	Undelivered map[string]int `json:"undelivered,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <definitions>...",
		Short: "Run automata over an input string",
		Long: `Compile the definitions and run them over --input, one character per
tick, until every instance has terminated or --max-ticks is reached.

--start names the instances to start as automaton or automaton:key and may
be repeated. Without it the first automaton is started unkeyed.

With --db the run and its trace are recorded in a SQLite database
(created if it doesn't exist) for later inspection with "tima trace".

Example:
  tima run hi.yaml --input ahxhi
  tima run door.yaml --start door:front --db ./tima.db --input "ooc"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutomata(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "characters consumed one per tick")
	cmd.Flags().StringArrayVar(&opts.Start, "start", nil, "instance to start as name[:key] (repeatable)")
	cmd.Flags().Int64Var(&opts.MaxTicks, "max-ticks", 1000, "stop after this many ticks (0 for no limit)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")

	return cmd
}

// parseStart splits "name[:key]".
func parseStart(s string) (name, key string) {
	name, key, _ = strings.Cut(s, ":")
	return name, key
}

func runAutomata(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	defs, err := loadDefinitions(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}

	// Journal lines stream to stdout as they happen unless stdout carries JSON.
	var live io.Writer
	if opts.Format != "json" {
		live = formatter.Writer
	}
	journal := charstream.NewJournal(live)
	compiled, errs := loader.BuildCompiled(defs, symbols(journal, false, logger), loader.LoadModeFailFast, compiler.WithLogger(logger))
	if len(errs) > 0 {
		is := issueOf(errs[0])
		_ = formatter.Error(is.Code, errs[0].Error(), nil)
		return WrapExitError(ExitFailure, "failed to build automata", errors.Join(errs...))
	}
	if len(compiled) == 0 {
		_ = formatter.Error(loader.ErrCodeGeneric, "no automata defined", nil)
		return NewExitError(ExitCommandError, "no automata defined")
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database, store.WithLogger(logger))
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	ids := opts.IDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	office := messaging.NewPostOffice(logger)
	defer office.Close()
	rec := store.NewRecorder()
	ex := engine.NewExecutor[Env](
		messaging.NewProvider[charstream.Input](charstream.New(opts.Input), office),
		engine.WithIDGenerator(ids),
		engine.WithListener(rec.Listen),
		engine.WithLogger(logger),
	)
	ex.Register(compiled...)

	start := opts.Start
	if len(start) == 0 {
		start = []string{compiled[0].Name()}
	}
	for _, s := range start {
		if name, _ := parseStart(s); name == "" {
			_ = formatter.Error(ErrCodeInvalid, fmt.Sprintf("invalid --start %q", s), nil)
			return NewExitError(ExitCommandError, "invalid --start")
		} else if _, ok := ex.Automaton(name); !ok {
			_ = formatter.Error(ErrCodeInvalid, fmt.Sprintf("unknown automaton %q", name), nil)
			return NewExitError(ExitCommandError, "unknown automaton")
		}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var runID string
	if st != nil {
		runID, err = recordRun(ctx, st, opts.Input, compiled)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	for _, s := range start {
		name, key := parseStart(s)
		// A fault while entering the initial state is part of the trace.
		_ = ex.StartNamed(name, key)
	}
	runErr := ex.Run(ctx, opts.MaxTicks)
	interrupted := errors.Is(runErr, context.Canceled)

	trace := rec.Events()
	result := RunResult{
		RunID:    runID,
		Status:   store.StatusOf(trace, len(ex.Cursors())),
		Ticks:    ex.Tick(),
		Events:   len(trace),
		Journal:  journal.Lines(),
		Counters: journal.Counts(),
	}
	for _, ev := range trace {
		if ev.Type == string(engine.EventFault) {
			result.Faults++
		}
	}
	result.TraceHash, err = store.HashTrace(trace)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash trace", err)
	}
	for _, k := range office.Keys() {
		if n := office.Mailbox(k).Len(); n > 0 {
			if result.Undelivered == nil {
				result.Undelivered = make(map[string]int)
			}
			result.Undelivered[k] = n
		}
	}

	if st != nil {
		// Recording must finish even when the run was interrupted.
		bg := context.WithoutCancel(ctx)
		if err := st.WriteTrace(bg, runID, trace); err != nil {
			return WrapExitError(ExitCommandError, "failed to record trace", err)
		}
		if err := st.FinishRun(bg, runID, result.Status, result.Ticks, result.TraceHash); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	if opts.Format != "json" {
		for _, ev := range trace {
			if ev.Type == string(engine.EventFault) {
				_ = formatter.Error(ErrCodeRuntime, ev.String(), nil)
			}
		}
	}
	if err := formatter.Success(result, func(w io.Writer) { printRun(w, result) }); err != nil {
		return err
	}
	switch {
	case interrupted:
		return NewExitError(ExitFailure, "run interrupted")
	case result.Faults > 0:
		return WrapExitError(ExitFailure, fmt.Sprintf("%d instance(s) failed", result.Faults), runErr)
	}
	return nil
}

func recordRun(ctx context.Context, st *store.Store, input string, compiled []*ir.Compiled[Env]) (string, error) {
	fingerprints := make(map[string]string, len(compiled))
	for _, c := range compiled {
		fp, err := c.Fingerprint()
		if err != nil {
			return "", err
		}
		fingerprints[c.Name()] = fp
	}
	return st.CreateRun(ctx, store.Run{Input: input, Automata: fingerprints})
}

func printRun(w io.Writer, r RunResult) {
	fmt.Fprintf(w, "%s after %d tick(s), %d event(s)\n", r.Status, r.Ticks, r.Events)
	if r.Faults > 0 {
		fmt.Fprintf(w, "  faults: %d\n", r.Faults)
	}
	for _, k := range slices.Sorted(maps.Keys(r.Undelivered)) {
		n := r.Undelivered[k]
		if k == "" {
			k = "(unkeyed)"
		}
		fmt.Fprintf(w, "  undelivered: %s has %d message(s)\n", k, n)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "  run: %s\n", r.RunID)
	}
	fmt.Fprintf(w, "  trace: %s\n", shortHash(r.TraceHash))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
