package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/loader"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Lenient bool
}

// ValidationIssue is one problem found in the definitions.
type ValidationIssue struct {
	Code      string `json:"code"`
	Automaton string `json:"automaton,omitempty"`
	Message   string `json:"message"`
	Line      int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Automata []string          `json:"automata"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <definitions>...",
		Short: "Check definitions without running them",
		Long: `Load definitions, resolve their symbols and compile every automaton,
reporting all problems instead of stopping at the first.

With --lenient every symbol name is accepted, so definitions written for
other symbol sets can be checked structurally.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // We handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Lenient, "lenient", false, "accept any symbol name")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	defs, err := loadDefinitions(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded %d definition(s) from %d path(s)", len(defs), len(paths))

	f := symbols(charstream.NewJournal(nil), opts.Lenient, logger)
	compiled, errs := loader.BuildCompiled(defs, f, loader.LoadModeCollectAll, compiler.WithLogger(logger))

	result := ValidationResult{Valid: len(errs) == 0, Automata: []string{}}
	for _, c := range compiled {
		result.Automata = append(result.Automata, c.Name())
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, issueOf(err))
	}

	if !result.Valid {
		if opts.Format == "json" {
			_ = formatter.Error(ErrCodeInvalid, "definitions are invalid", result)
		} else {
			printIssues(formatter.Writer, result.Errors)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "OK: %d automata valid\n", len(result.Automata))
	})
}

func issueOf(err error) ValidationIssue {
	var le *loader.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: loader.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: le.Code, Automaton: le.Automaton, Message: le.Message}
	if le.Pos.IsValid() {
		issue.Line = le.Pos.Line()
	}
	return issue
}

func printIssues(w io.Writer, issues []ValidationIssue) {
	fmt.Fprintf(w, "Validation failed with %d error(s):\n", len(issues))
	for _, is := range issues {
		where := ""
		if is.Automaton != "" {
			where = " [" + is.Automaton + "]"
		}
		if is.Line > 0 {
			where += fmt.Sprintf(" (line %d)", is.Line)
		}
		fmt.Fprintf(w, "  %s%s: %s\n", is.Code, where, is.Message)
	}
}
