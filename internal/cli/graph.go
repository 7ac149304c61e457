package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/celldl/pkg/dag"
	"github.com/matzehuels/celldl/pkg/document"
	"github.com/matzehuels/celldl/pkg/pipeline"
	"github.com/matzehuels/celldl/pkg/resolve"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string // output file; stdout when empty
	format   string // "dot" or "svg"
	detailed bool   // label nodes with their kind and position text
}

// graphCommand creates the graph command, a debugging view of the position
// dependencies of a document.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: pipeline.FormatDOT}

	cmd := &cobra.Command{
		Use:   "graph FILE",
		Short: "Render the position dependency graph of a document",
		Long: `Graph prints the dependency graph the resolver orders: one node per
element, an edge for each position reference and a dashed edge from each
compartment to its contents. Use -f svg to lay it out with Graphviz.

The elements placed without reference to any other (anchors) and those
nothing else depends on (leaves) are logged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != pipeline.FormatDOT && opts.format != pipeline.FormatSVG {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", opts.format)
			}
			return c.runGraph(cmd.Context(), cmd.OutOrStdout(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot (default), svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show element kinds and positions in node labels")
	return cmd
}

func (c *CLI) runGraph(ctx context.Context, w io.Writer, input string, opts *graphOpts) error {
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	po := cfg.PipelineOptions()
	d, err := document.ReadFile(input, po.DocumentOptions())
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	logger.Debugf("Loaded %d elements", len(d.Elements()))

	g, err := resolve.Graph(d)
	if err != nil {
		return err
	}
	anchors, leaves := graphEnds(g)
	logger.Info("Dependency graph", "elements", len(g.Nodes()), "anchors", strings.Join(anchors, ","), "leaves", strings.Join(leaves, ","))

	data, err := pipeline.RenderGraph(ctx, d, opts.format, opts.detailed)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered dependency graph")
	printFile(opts.output)
	printKeyValue("Anchors", strings.Join(anchors, ", "))
	printKeyValue("Leaves", strings.Join(leaves, ", "))
	return nil
}

// graphEnds returns the keys of the elements placed without reference to
// any other, and of those nothing else is placed against.
func graphEnds(g *dag.DAG) (anchors, leaves []string) {
	for _, n := range g.Sources() {
		anchors = append(anchors, n.ID)
	}
	for _, n := range g.Sinks() {
		leaves = append(leaves, n.ID)
	}
	return anchors, leaves
}
