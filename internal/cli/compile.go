package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/ir"
	"github.com/roach88/tima/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output  string
	Lenient bool
}

// CompiledSummary describes one compiled automaton.
type CompiledSummary struct {
	Name        string `json:"name"`
	States      int    `json:"states"`
	Links       int    `json:"links"`
	Predicates  int    `json:"predicates"`
	Fingerprint string `json:"fingerprint"`
}

// CompileResult holds the compile command output.
type CompileResult struct {
	Automata []CompiledSummary `json:"automata"`
	Output   string            `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <definitions>...",
		Short: "Compile definitions into executable tables",
		Long: `Compile every automaton, merging competing deadlines into chains of
synthetic links, and print a summary with content fingerprints.

With -o the canonical JSON form of the compiled tables is written to a
file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled tables as canonical JSON")
	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "accept any symbol name")

	return cmd
}

func runCompile(opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	defs, err := loadDefinitions(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}

	f := symbols(charstream.NewJournal(nil), opts.Lenient, logger)
	compiled, errs := loader.BuildCompiled(defs, f, loader.LoadModeFailFast, compiler.WithLogger(logger))
	if len(errs) > 0 {
		is := issueOf(errs[0])
		_ = formatter.Error(is.Code, errs[0].Error(), nil)
		return WrapExitError(ExitFailure, "compilation failed", errors.Join(errs...))
	}

	result := CompileResult{Automata: make([]CompiledSummary, 0, len(compiled))}
	tables := make([]any, 0, len(compiled))
	for _, c := range compiled {
		fp, err := c.Fingerprint()
		if err != nil {
			return WrapExitError(ExitFailure, "fingerprint failed", err)
		}
		result.Automata = append(result.Automata, CompiledSummary{
			Name:        c.Name(),
			States:      c.UserStates(),
			Links:       c.Len() - c.UserStates(),
			Predicates:  c.Predicates(),
			Fingerprint: fp,
		})
		tables = append(tables, c.Canonical())
	}

	if opts.Output != "" {
		data, err := ir.MarshalCanonical(tables)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode compiled tables", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		result.Output = opts.Output
		formatter.VerboseLog("Wrote %d automata to %s", len(tables), opts.Output)
	}

	return formatter.Success(result, func(w io.Writer) {
		for _, s := range result.Automata {
			fmt.Fprintf(w, "%s: %d states, %d links, %d predicates, %s\n",
				s.Name, s.States, s.Links, s.Predicates, shortHash(s.Fingerprint))
		}
	})
}
