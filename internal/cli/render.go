package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/celldl/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string   // output file (single input and format) or base path
	outputDir string   // directory for outputs of several inputs
	formats   []string // output formats: "svg", "json", "dot"
	width     float64  // diagram width when the document sets none
	height    float64  // diagram height when the document sets none
	noLabels  bool     // omit element labels from SVG output
	noCache   bool     // bypass the artifact cache entirely
	refresh   bool     // recompute and overwrite cached artifacts
	jobs      int      // documents laid out concurrently
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{jobs: runtime.GOMAXPROCS(0)}

	cmd := &cobra.Command{
		Use:   "render FILE...",
		Short: "Lay out CellDL documents and render them",
		Long: `Render resolves every element position of each CellDL document, routes
its flux lines and writes the requested formats next to the input (or to
--output / --output-dir). Documents are processed concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if opts.output != "" && len(args) > 1 {
				return fmt.Errorf("--output takes a single input; use --output-dir for %d inputs", len(args))
			}
			if opts.jobs < 1 {
				return fmt.Errorf("--jobs must be at least 1")
			}
			pipeOpts, err := c.renderPipelineOptions(cmd, &opts)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args, pipeOpts, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several formats)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "d", "", "directory for rendered files (default: next to each input)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, dot (comma-separated)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "diagram width when the document sets none")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "diagram height when the document sets none")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit element labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached artifacts and overwrite them")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", opts.jobs, "documents to lay out concurrently")

	return cmd
}

// renderPipelineOptions merges the config file with the flags the user set.
func (c *CLI) renderPipelineOptions(cmd *cobra.Command, opts *renderOpts) (pipeline.Options, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return pipeline.Options{}, err
	}
	po := cfg.PipelineOptions()

	flags := cmd.Flags()
	if flags.Changed("width") {
		po.Width = opts.width
	}
	if flags.Changed("height") {
		po.Height = opts.height
	}
	if len(opts.formats) > 0 {
		po.Formats = opts.formats
	}
	if opts.noLabels {
		po.NoLabels = true
	}
	po.Refresh = opts.refresh
	if !flags.Changed("output-dir") {
		opts.outputDir = cfg.Render.OutputDir
	}
	return po, nil
}

// runRender lays out every input concurrently, then writes the artifacts in
// input order.
func (c *CLI) runRender(ctx context.Context, inputs []string, po pipeline.Options, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	results := make([]*pipeline.Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs)
	for i, input := range inputs {
		g.Go(func() error {
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			logger.Debug("rendering", "file", input, "bytes", len(data))
			res, err := runner.Execute(gctx, data, po)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	formats := make([][]string, len(inputs))
	for i, res := range results {
		formats[i] = slices.Sorted(maps.Keys(res.Artifacts))
	}
	paths, err := outputPaths(inputs, formats, opts)
	if err != nil {
		return err
	}

	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	for i, input := range inputs {
		res := results[i]

		printSuccess("Rendered %s", input)
		for j, format := range formats[i] {
			path := paths[i][j]
			if err := os.WriteFile(path, res.Artifacts[format], 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			printFile(path)
		}
		printStats(res.Stats.ElementCount, res.Stats.LineCount, res.CacheInfo.RenderHit)
	}

	if len(inputs) == 1 {
		printNewline()
		printNextStep("Inspect positions", appName+" positions "+inputs[0])
	}
	prog.done(fmt.Sprintf("Rendered %d document(s)", len(inputs)))
	return nil
}

// outputPaths returns the output file of every input and format, in the
// order given. Two artifacts that would land on the same file are an error,
// as happens when inputs in different directories share a name and are
// rendered into one --output-dir.
func outputPaths(inputs []string, formats [][]string, opts *renderOpts) ([][]string, error) {
	owners := make(map[string]string)
	paths := make([][]string, len(inputs))
	for i, input := range inputs {
		for _, format := range formats[i] {
			path := outputPath(input, format, len(formats[i]), opts)
			key := filepath.Clean(path)
			if prev, taken := owners[key]; taken {
				return nil, fmt.Errorf("%s and %s both render to %s; rename one or render them separately", prev, input, path)
			}
			owners[key] = input
			paths[i] = append(paths[i], path)
		}
	}
	return paths, nil
}

// outputPath returns where the artifact of input in format is written.
// An explicit --output names the file itself when only one format is
// rendered, and the base path otherwise.
func outputPath(input, format string, formatCount int, opts *renderOpts) string {
	if opts.output != "" {
		if formatCount == 1 {
			return opts.output
		}
		return basePath(opts.output, input) + "." + format
	}
	base := basePath("", input)
	if opts.outputDir != "" {
		base = filepath.Join(opts.outputDir, filepath.Base(base))
	}
	return base + "." + format
}
