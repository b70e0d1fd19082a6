package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/pipeline"
)

var (
	renderFormats = []string{pipeline.FormatSVG, pipeline.FormatDOT, pipeline.FormatGraphvizSVG, pipeline.FormatJSON}
	exportFormats = []string{pipeline.FormatHTML, pipeline.FormatMarkdown}
)

// artifactOpts holds the flags shared by render and export.
type artifactOpts struct {
	layoutFlags
	output      string
	formats     []string
	title       string
	highlight   string
	detailed    bool
	interactive bool
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := artifactOpts{formats: []string{pipeline.FormatSVG}}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the tree as SVG, Graphviz DOT or layout JSON",
		Long: `Draw the tree generation by generation.

Formats:
  svg    rows of member cards with parent and spouse connectors
  dot    Graphviz source with one rank per generation
  gvsvg  the dot output laid out by Graphviz
  json   the computed layout`,
		Example: `  legacylink render -o family.svg
  legacylink render --focus "Tom Hale" -f svg,dot -o out/hale`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runArtifacts(cmd, &opts, renderFormats)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", opts.formats, "output formats: "+strings.Join(renderFormats, ", "))
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add generation numbers to DOT labels")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "add hover details to SVG cards")
	return cmd
}

func (c *CLI) exportCommand() *cobra.Command {
	opts := artifactOpts{formats: []string{pipeline.FormatHTML}}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the tree as an HTML or Markdown family book",
		Example: `  legacylink export -o hale.html --title "The Hale Family"
  legacylink export -f markdown -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runArtifacts(cmd, &opts, exportFormats)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", opts.formats, "output formats: "+strings.Join(exportFormats, ", "))
	return cmd
}

func (o *artifactOpts) register(cmd *cobra.Command) {
	o.layoutFlags.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&o.output, "output", "o", "", "output file, base path for several formats, or - for stdout")
	flags.StringVar(&o.title, "title", "", "title shown on the drawing")
	flags.StringVar(&o.highlight, "highlight", "", "member to highlight (defaults to --focus)")
}

func (c *CLI) runArtifacts(cmd *cobra.Command, o *artifactOpts, allowed []string) error {
	for _, f := range o.formats {
		if !slices.Contains(allowed, f) {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of: %s)", f, strings.Join(allowed, ", "))
		}
	}
	if o.output == "-" && len(o.formats) > 1 {
		return errors.New(errors.ErrCodeInvalidInput, "only one format can be written to stdout")
	}

	r, roster, err := c.loadTree(cmd)
	if err != nil {
		return err
	}
	opts, err := c.optionsFrom(cmd, &o.layoutFlags, roster)
	if err != nil {
		return err
	}
	opts.Formats = o.formats
	opts.Title = o.title
	opts.Detailed = o.detailed
	opts.Interactive = o.interactive
	if o.highlight != "" {
		m, err := resolveMember(roster, o.highlight)
		if err != nil {
			return err
		}
		opts.Highlight = m.ID
	}
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	artifacts, st, err := c.render(cmd.Context(), r, roster, opts, o.output != "-")
	if err != nil {
		return err
	}

	if o.output == "-" {
		_, err := stdout.Write(artifacts[o.formats[0]])
		return err
	}
	paths := outputPaths(o.output, c.tree, o.formats)
	for _, f := range o.formats {
		if dir := filepath.Dir(paths[f]); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(paths[f], artifacts[f], 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeStorage, err, "write %s", paths[f])
		}
	}

	printSuccess("Rendered %s", StyleHighlight.Render(c.tree))
	for _, f := range o.formats {
		printFile(paths[f])
	}
	printStats(st.members, st.connections, st.generations, st.cached)
	return nil
}

type renderStats struct {
	members, connections, generations int
	cached                            bool
}

// render lays out and renders roster, behind a spinner when spin is set.
// The result counts as cached only when both steps hit the cache.
func (c *CLI) render(ctx context.Context, r *pipeline.Runner, roster *family.Roster, opts pipeline.Options, spin bool) (map[string][]byte, renderStats, error) {
	var sp *Spinner
	if spin {
		sp = newSpinner(ctx, "Laying out "+c.tree+"...")
		sp.Start()
		defer sp.Stop()
	}

	logger := loggerFromContext(ctx)
	p := newProgress(logger)
	res, layoutCached, err := r.LayoutWithCacheInfo(ctx, roster, opts)
	if err != nil {
		return nil, renderStats{}, err
	}
	p.done(fmt.Sprintf("laid out %d members", len(res.Nodes)))

	if sp != nil {
		sp.Update("Rendering " + strings.Join(opts.Formats, ", ") + "...")
	}
	p = newProgress(logger)
	artifacts, renderCached, err := r.RenderWithCacheInfo(ctx, roster, res, opts)
	if err != nil {
		return nil, renderStats{}, err
	}
	p.done(fmt.Sprintf("rendered %d artifacts", len(artifacts)))

	return artifacts, renderStats{
		members:     len(res.Nodes),
		connections: len(res.Connections),
		generations: len(res.Generations),
		cached:      layoutCached && renderCached,
	}, nil
}

// outputPaths maps each format to a file. A single format uses output
// as given; several formats share output (minus any extension) as a base.
func outputPaths(output, tree string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := tree
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	svgs := 0
	for _, f := range formats {
		if pipeline.Extensions[f] == ".svg" {
			svgs++
		}
	}
	for _, f := range formats {
		suffix := pipeline.Extensions[f]
		if f == pipeline.FormatGraphvizSVG && svgs > 1 {
			suffix = ".gv.svg"
		}
		paths[f] = base + suffix
	}
	return paths
}
