// Package nodelink renders family trees as Graphviz node-link diagrams.
//
// # Usage
//
// Lay the roster out first, then convert the result to DOT and render it:
//
//	res := layout.Compute(members)
//	dot := nodelink.ToDOT(members, res, nodelink.Options{Highlight: focusID})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The layout's generations become rank=same groups, so Graphviz keeps each
// generation on one row while choosing horizontal positions itself. For the
// exact coordinates computed by the layout engine use the svg package
// instead.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz], which embeds Graphviz
// as WebAssembly; no system installation is required.
package nodelink
