// Package layout computes the generational tree layout of a roster: a
// generation per member, 2D coordinates per member, and the connections to
// draw between them.
//
// # Generations
//
// [AssignGenerations] is a breadth-first fixed point over the family graph.
// Starting from a seed at generation 0, parents are pushed to one
// generation above their children, children one below, and siblings and
// spouses onto the same generation; conflicting proposals resolve to the
// maximum. Members the seed cannot reach are seeded independently, so
// every member is always placed.
//
// # Coordinates
//
// Members are grouped into rows by generation. Rows are ordered by
// generation (oldest first by default) and numbered by position, so gaps in
// generation numbers collapse. Within a row members keep roster order and
// rows are centered horizontally:
//
//	res := layout.Compute(roster.Members,
//	    layout.WithFocus(meID),
//	    layout.WithSiblingConnections(true),
//	)
//	for _, n := range res.Nodes {
//	    fmt.Println(n.Name, n.Generation, n.X, n.Y)
//	}
//
// Layout is a pure function: identical input produces identical output.
package layout
