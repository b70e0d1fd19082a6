// Package render groups the family tree renderers.
//
// Both renderers take a computed [layout.Result] together with the roster
// members it was computed from:
//
//   - [svg] draws member cards at the layout's coordinates, one row per
//     generation, with parent, spouse and optional sibling connectors.
//   - [nodelink] converts the tree to Graphviz DOT with one rank per
//     generation and can lay that out to SVG through Graphviz.
//
//	res := layout.Compute(members, layout.WithFocus(id))
//	image := svg.Render(res, members, svg.WithHighlight(id))
//	dot := nodelink.ToDOT(members, res, nodelink.Options{Highlight: id})
//
// [layout.Result]: github.com/legacylink/legacylink/pkg/layout
// [svg]: github.com/legacylink/legacylink/pkg/render/svg
// [nodelink]: github.com/legacylink/legacylink/pkg/render/nodelink
package render
