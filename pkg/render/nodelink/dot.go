package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

// Options configures node-link diagram generation.
type Options struct {
	// Detailed adds the generation number to node labels.
	Detailed bool
	// Highlight outlines one member, usually the focus.
	Highlight string
}

var fillColors = map[family.Gender]string{
	family.GenderMale:   "#dbeafe",
	family.GenderFemale: "#fce7f3",
	family.GenderOther:  "#f3f4f6",
}

// ToDOT converts a laid-out roster to Graphviz DOT. Members of the same
// generation share a rank, parent edges point down, and spouse edges are
// drawn dashed without arrowheads. Sibling connections are emitted when the
// layout includes them.
func ToDOT(members []family.Member, res layout.Result, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph family {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	byID := make(map[string]*family.Member, len(members))
	for i := range members {
		if _, ok := byID[members[i].ID]; !ok {
			byID[members[i].ID] = &members[i]
		}
	}

	for _, row := range res.Rows() {
		if len(row) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "  { rank=same; // generation %d\n", row[0].Generation)
		for _, n := range row {
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, byID[n.ID], opts), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, c := range res.Connections {
		switch c.Type {
		case layout.ConnectionParent:
			fmt.Fprintf(&buf, "  %q -> %q;\n", c.From, c.To)
		case layout.ConnectionSpouse:
			fmt.Fprintf(&buf, "  %q -> %q [dir=none, style=dashed, constraint=false];\n", c.From, c.To)
		case layout.ConnectionSibling:
			fmt.Fprintf(&buf, "  %q -> %q [dir=none, style=dotted, color=grey, constraint=false];\n", c.From, c.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n layout.Node, m *family.Member, opts Options) []string {
	label := n.Name
	if m != nil {
		if span := m.Lifespan(); span != "" {
			label += "\n" + span
		}
	}
	if opts.Detailed {
		label += fmt.Sprintf("\ngeneration %d", n.Generation)
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", fillColors[n.Gender.Normalize()]),
	}
	if n.ID == opts.Highlight {
		attrs = append(attrs, "penwidth=3", "color=\"#b45309\"")
	}
	if m != nil && m.IsDeceased() {
		attrs = append(attrs, "fontcolor=\"#4b5563\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element to a zero-origin viewBox with
// pixel width and height, dropping graphviz's pt units.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
