package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tima/internal/automaton"
	"github.com/roach88/tima/internal/charstream"
	"github.com/roach88/tima/internal/compiler"
	"github.com/roach88/tima/internal/loader"
	"github.com/roach88/tima/internal/render"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output    string
	Automaton string
	Compiled  bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <definitions>...",
		Short: "Draw automata as Graphviz DOT",
		Long: `Render automata as a Graphviz digraph, one cluster per automaton, or a
single automaton with --automaton. With --compiled the synthetic links
produced by the compiler are drawn too.

Every symbol name is accepted: rendering needs only the names.

Example:
  tima render door.yaml --compiled | dot -Tsvg > door.svg`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write DOT to a file instead of stdout")
	cmd.Flags().StringVar(&opts.Automaton, "automaton", "", "render only this automaton")
	cmd.Flags().BoolVar(&opts.Compiled, "compiled", false, "render compiled tables")

	return cmd
}

func runRender(opts *RenderOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	defs, err := loadDefinitions(paths)
	if err != nil {
		return loadFailure(formatter, err)
	}

	f := symbols(charstream.NewJournal(nil), true, logger)
	automata, errs := loader.Build(defs, f, loader.LoadModeFailFast)
	if len(errs) > 0 {
		is := issueOf(errs[0])
		_ = formatter.Error(is.Code, errs[0].Error(), nil)
		return WrapExitError(ExitFailure, "failed to build automata", errs[0])
	}

	var graphs []automaton.Graph
	for _, a := range automata {
		if opts.Automaton != "" && a.Name() != opts.Automaton {
			continue
		}
		if !opts.Compiled {
			graphs = append(graphs, a.Graph())
			continue
		}
		c, err := compiler.Compile(a, compiler.WithLogger(logger))
		if err != nil {
			_ = formatter.Error(loader.ErrCodeMalformed, err.Error(), nil)
			return WrapExitError(ExitFailure, "compilation failed", err)
		}
		graphs = append(graphs, c.Graph())
	}
	if len(graphs) == 0 {
		_ = formatter.Error(loader.ErrCodeNotFound, fmt.Sprintf("automaton %q not found", opts.Automaton), nil)
		return NewExitError(ExitCommandError, "nothing to render")
	}

	var dot string
	if opts.Automaton != "" {
		dot = render.DOT(graphs[0])
	} else {
		clusters := make([]render.Cluster, len(graphs))
		for i, g := range graphs {
			clusters[i] = render.Cluster{Graph: g, Active: -1}
		}
		dot = render.DOTAll("tima", clusters)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(dot), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		return formatter.Success(map[string]any{"output": opts.Output, "automata": len(graphs)}, nil)
	}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"dot": dot}, nil)
	}
	fmt.Fprint(formatter.Writer, dot)
	return nil
}
