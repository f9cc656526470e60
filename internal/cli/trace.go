package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/queryir"
	"github.com/roach88/tima/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Instance string   // optional - filter to one instance id
	Where    []string // optional - event conditions, e.g. "type=fault"
	Verify   bool
}

// TraceResult holds the trace of one recorded run.
type TraceResult struct {
	Run      store.Run          `json:"run"`
	Events   []store.TraceEvent `json:"events"`
	Verified *bool              `json:"verified,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect recorded runs",
		Long: `List the runs recorded in a database, or print the trace of one run.

--where filters events by field: seq, tick, type, instance, key, automaton,
from, to, predicate, timeout, self or error. Conditions are field=value,
field!=value or field=a..b for tick and seq ranges, and may be repeated.

With --verify the stored trace is hashed again and compared with the hash
recorded when the run finished.

Examples:
  tima trace --db ./tima.db
  tima trace --db ./tima.db 0190c3e2-...
  tima trace --db ./tima.db 0190c3e2-... --instance 0190c3e2-... --verify
  tima trace --db ./tima.db 0190c3e2-... --where automaton=door --where tick=3..7`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Instance, "instance", "", "show only events of this instance")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "show only events matching field=value (repeatable)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check the stored trace against its hash")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := context.Background()

	// Opening would create a fresh database.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if len(args) == 0 {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return formatter.Success(runs, func(w io.Writer) { printRuns(w, runs) })
	}

	run, err := st.GetRun(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("run %s not found", args[0]), nil)
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	filter, err := queryir.ParseConditions(opts.Where)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --where", err)
	}

	var events []store.TraceEvent
	switch {
	case filter != nil:
		if opts.Instance != "" {
			filter = queryir.And{Predicates: []queryir.Predicate{filter, queryir.Equals{Field: "instance", Value: opts.Instance}}}
		}
		events, err = st.QueryTrace(ctx, run.ID, filter)
	case opts.Instance != "":
		events, err = st.ReadInstance(ctx, run.ID, opts.Instance)
	default:
		events, err = st.ReadTrace(ctx, run.ID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	result := TraceResult{Run: run, Events: events}

	var verifyErr error
	if opts.Verify {
		verifyErr = st.VerifyTrace(ctx, run.ID)
		ok := verifyErr == nil
		result.Verified = &ok
		var mismatch *store.TraceMismatchError
		if verifyErr != nil && !errors.As(verifyErr, &mismatch) {
			return WrapExitError(ExitCommandError, "failed to verify trace", verifyErr)
		}
	}

	if err := formatter.Success(result, func(w io.Writer) { printTrace(w, result) }); err != nil {
		return err
	}
	if verifyErr != nil {
		return WrapExitError(ExitFailure, "trace verification failed", verifyErr)
	}
	return nil
}

func printRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		name := r.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s  %-10s %5d ticks  %s\n", r.ID, r.Status, r.Ticks, name)
	}
}

func printTrace(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Run %s (%s, %d ticks)\n", r.Run.ID, r.Run.Status, r.Run.Ticks)
	if r.Run.Input != "" {
		fmt.Fprintf(w, "Input: %q\n", r.Run.Input)
	}
	for _, ev := range r.Events {
		fmt.Fprintf(w, "  [%d] tick %d %s\n", ev.Seq, ev.Tick, ev.String())
	}
	if r.Verified != nil {
		if *r.Verified {
			fmt.Fprintln(w, "Trace verified.")
		} else {
			fmt.Fprintln(w, "Trace hash MISMATCH.")
		}
	}
}
