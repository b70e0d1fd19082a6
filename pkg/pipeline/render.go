package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/export"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/graph"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/observability"
	"github.com/legacylink/legacylink/pkg/render/nodelink"
	"github.com/legacylink/legacylink/pkg/render/svg"
)

// DefaultTitle titles exported documents when no title is given.
const DefaultTitle = "Family Tree"

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, members []family.Member, res layout.Result, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := RenderFormat(ctx, format, members, res, opts)
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFormat generates a single artifact and reports it to the pipeline
// hooks.
func RenderFormat(ctx context.Context, format string, members []family.Member, res layout.Result, opts Options) ([]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()

	data, err := renderFormat(ctx, format, members, res, opts)
	if err != nil && errors.GetCode(err) == "" {
		err = errors.Wrap(errors.ErrCodeInternal, err, "render %s", format)
	}
	hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	return data, err
}

func renderFormat(ctx context.Context, format string, members []family.Member, res layout.Result, opts Options) ([]byte, error) {
	switch format {
	case FormatSVG:
		return svg.Render(res, members, svgOptions(opts)...), nil
	case FormatDOT:
		return []byte(nodelink.ToDOT(members, res, dotOptions(opts))), nil
	case FormatGraphvizSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(members, res, dotOptions(opts)))
	case FormatJSON:
		return graph.MarshalLayout(res)
	case FormatHTML:
		return renderBook(export.FormatHTML, members, res, opts)
	case FormatMarkdown:
		return renderBook(export.FormatMarkdown, members, res, opts)
	default:
		return nil, ValidateFormat(format)
	}
}

func svgOptions(opts Options) []svg.Option {
	var out []svg.Option
	if opts.Title != "" {
		out = append(out, svg.WithTitle(opts.Title))
	}
	if opts.Highlight != "" {
		out = append(out, svg.WithHighlight(opts.Highlight))
	}
	if opts.Interactive {
		out = append(out, svg.WithInteraction())
	}
	return out
}

func dotOptions(opts Options) nodelink.Options {
	return nodelink.Options{Detailed: opts.Detailed, Highlight: opts.Highlight}
}

func renderBook(format export.Format, members []family.Member, res layout.Result, opts Options) ([]byte, error) {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	book := export.NewBook(title, members, res, opts.Focus)
	var buf bytes.Buffer
	if err := export.Write(&buf, format, book); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderFromLayoutData renders output from a serialized layout, such as a
// cached one or a `legacylink layout --json` file.
func RenderFromLayoutData(ctx context.Context, data []byte, members []family.Member, opts Options) (map[string][]byte, error) {
	res, err := graph.UnmarshalLayout(data)
	if err != nil {
		return nil, err
	}
	return Render(ctx, members, res, opts)
}
