package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/factory"
	"github.com/roach88/tima/internal/loader"
	"github.com/roach88/tima/internal/messaging"
)

// Env is the context automata run with from the command line: the current
// character of the input stream plus the instance's mailbox.
type Env = *messaging.Env[charstream.Input]

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger returns a text logger on w: debug level when verbose, warnings
// only otherwise.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// symbols returns the factory resolving the built-in character and
// messaging symbols. Log actions write to journal. With lenient every name
// resolves to a placeholder.
func symbols(journal *charstream.Journal, lenient bool, logger *slog.Logger) factory.Factory[Env] {
	if lenient {
		return factory.Placeholder[Env]{}
	}
	return messaging.NewFactory[charstream.Input](charstream.Symbols(journal, logger), logger)
}

// loadDefinitions loads every path in order.
func loadDefinitions(paths []string) ([]loader.Definition, error) {
	var defs []loader.Definition
	for _, p := range paths {
		d, err := loader.LoadFile(p)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}

// loadFailure converts a loading error into CLI output and an exit error.
func loadFailure(f *OutputFormatter, err error) error {
	code := loader.ErrCodeGeneric
	var le *loader.LoadError
	if errors.As(err, &le) {
		code = le.Code
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to load definitions", err)
}
