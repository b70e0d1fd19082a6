// Package svg draws a computed family layout as a standalone SVG document,
// using the exact coordinates from the layout engine.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

const cardInteractionCSS = `
    .card rect { transition: stroke-width 0.2s ease; }
    .card.highlight rect { stroke-width: 3; }
    .link { fill: none; stroke: #6b7280; stroke-width: 1.5; }
    .link.spouse { stroke-dasharray: 6 4; }
    .link.sibling { stroke: #d1d5db; stroke-dasharray: 2 3; }
    .link.highlight { stroke: #b45309; stroke-width: 2.5; }`

const cardInteractionJS = `
    function highlight(id) {
      document.querySelectorAll('.link').forEach(l => l.classList.toggle('highlight', l.dataset.from === id || l.dataset.to === id));
      document.querySelectorAll('.card').forEach(c => c.classList.toggle('highlight', c.dataset.id === id));
    }
    function clearHighlight() {
      document.querySelectorAll('.link, .card').forEach(el => el.classList.remove('highlight'));
    }
    document.querySelectorAll('.card').forEach(el => {
      el.addEventListener('mouseenter', () => highlight(el.dataset.id));
      el.addEventListener('mouseleave', clearHighlight);
    });`

var palette = map[family.Gender]struct{ fill, stroke string }{
	family.GenderMale:   {"#dbeafe", "#2563eb"},
	family.GenderFemale: {"#fce7f3", "#db2777"},
	family.GenderOther:  {"#f3f4f6", "#6b7280"},
}

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	title       string
	highlight   string
	interactive bool
}

// WithTitle adds a title line above the tree.
func WithTitle(title string) Option { return func(r *renderer) { r.title = title } }

// WithHighlight outlines the card of member id.
func WithHighlight(id string) Option { return func(r *renderer) { r.highlight = id } }

// WithInteraction embeds hover highlighting CSS and script.
func WithInteraction() Option { return func(r *renderer) { r.interactive = true } }

const titleHeight = 40.0

// Render draws res. Members supply lifespans and deceased styling; nodes
// without a matching member are drawn with their name only.
func Render(res layout.Result, members []family.Member, opts ...Option) []byte {
	r := renderer{}
	for _, opt := range opts {
		opt(&r)
	}

	byID := make(map[string]*family.Member, len(members))
	for i := range members {
		if _, ok := byID[members[i].ID]; !ok {
			byID[members[i].ID] = &members[i]
		}
	}
	nodes := make(map[string]layout.Node, len(res.Nodes))
	for _, n := range res.Nodes {
		nodes[n.ID] = n
	}

	offset := 0.0
	if r.title != "" {
		offset = titleHeight
	}
	width, height := res.Width, res.Height+offset

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f" font-family="Helvetica, Arial, sans-serif">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", cardInteractionCSS)

	if r.title != "" {
		fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-size="20" font-weight="bold">%s</text>`+"\n",
			width/2, titleHeight*0.65, escape(r.title))
	}
	fmt.Fprintf(&buf, "  <g transform=\"translate(0 %.1f)\">\n", offset)

	for _, c := range res.Connections {
		from, okF := nodes[c.From]
		to, okT := nodes[c.To]
		if !okF || !okT {
			continue
		}
		renderConnection(&buf, c, from, to, res.Options.RowHeight)
	}
	for _, n := range res.Nodes {
		renderCard(&buf, n, byID[n.ID], n.ID == r.highlight)
	}

	buf.WriteString("  </g>\n")
	if r.interactive {
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", cardInteractionJS)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// renderConnection draws parent links as elbows from the bottom of the
// parent to the top of the child, and spouse and sibling links as straight
// center-to-center lines.
func renderConnection(buf *bytes.Buffer, c layout.Connection, from, to layout.Node, rowHeight float64) {
	attrs := fmt.Sprintf(`class="link %s" data-from="%s" data-to="%s"`, c.Type, escape(c.From), escape(c.To))
	if c.Type != layout.ConnectionParent {
		fmt.Fprintf(buf, `    <line %s x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
			attrs, from.CenterX(), from.CenterY(), to.CenterX(), to.CenterY())
		return
	}

	x1, y1 := from.CenterX(), from.Y+from.Height
	x2, y2 := to.CenterX(), to.Y
	if y2 < y1 {
		// Ascending order draws children above parents.
		y1, y2 = from.Y, to.Y+to.Height
	}
	mid := (y1 + y2) / 2
	if rowHeight > 0 && from.Level != to.Level && abs(float64(from.Level-to.Level)) > 1 {
		// Span several rows: bend just past the parent's row.
		mid = y1 + sign(y2-y1)*(rowHeight-from.Height)/2
	}
	fmt.Fprintf(buf, `    <path %s d="M%.1f %.1f V%.1f H%.1f V%.1f"/>`+"\n", attrs, x1, y1, mid, x2, y2)
}

func renderCard(buf *bytes.Buffer, n layout.Node, m *family.Member, highlighted bool) {
	colors := palette[n.Gender.Normalize()]
	stroke, width := colors.stroke, 1.5
	if highlighted {
		stroke, width = "#b45309", 3
	}
	opacity := ""
	if m != nil && m.IsDeceased() {
		opacity = ` opacity="0.8"`
	}

	fmt.Fprintf(buf, `    <g class="card" data-id="%s"%s>`+"\n", escape(n.ID), opacity)
	fmt.Fprintf(buf, `      <title>%s</title>`+"\n", escape(n.Name))
	fmt.Fprintf(buf, `      <rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" ry="8" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
		n.X, n.Y, n.Width, n.Height, colors.fill, stroke, width)

	nameY := n.CenterY()
	span := ""
	if m != nil {
		span = m.Lifespan()
	}
	if span != "" {
		nameY -= 7
	}
	fmt.Fprintf(buf, `      <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-size="%.1f">%s</text>`+"\n",
		n.CenterX(), nameY, fontSize(n.Width, n.Name), escape(truncate(n.Name, n.Width)))
	if span != "" {
		fmt.Fprintf(buf, `      <text x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="middle" font-size="11" fill="#4b5563">%s</text>`+"\n",
			n.CenterX(), n.CenterY()+10, escape(span))
	}
	buf.WriteString("    </g>\n")
}

const (
	fontCharWidth = 0.55
	fontSizeMin   = 9.0
	fontSizeMax   = 14.0
	textPadding   = 0.85
)

func fontSize(boxWidth float64, label string) float64 {
	n := max(1, len([]rune(label)))
	return max(fontSizeMin, min(fontSizeMax, boxWidth*textPadding/(float64(n)*fontCharWidth)))
}

func truncate(label string, boxWidth float64) string {
	runes := []rune(label)
	maxChars := max(3, int(boxWidth*textPadding/(fontSizeMin*fontCharWidth)))
	if len(runes) <= maxChars {
		return label
	}
	return string(runes[:maxChars-2]) + ".."
}

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
