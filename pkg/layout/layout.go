package layout

import (
	"slices"

	"github.com/legacylink/legacylink/pkg/family"
)

// ConnectionType names the kind of line drawn between two nodes.
type ConnectionType string

const (
	ConnectionParent  ConnectionType = "parent"
	ConnectionSpouse  ConnectionType = "spouse"
	ConnectionSibling ConnectionType = "sibling"
)

// Node is one positioned member. X and Y are the top-left corner.
type Node struct {
	ID         string        `json:"id" bson:"id"`
	Name       string        `json:"name" bson:"name"`
	Gender     family.Gender `json:"gender" bson:"gender"`
	Generation int           `json:"generation" bson:"generation"`
	Level      int           `json:"level" bson:"level"`
	Index      int           `json:"index" bson:"index"`
	X          float64       `json:"x" bson:"x"`
	Y          float64       `json:"y" bson:"y"`
	Width      float64       `json:"width" bson:"width"`
	Height     float64       `json:"height" bson:"height"`
}

// CenterX returns the horizontal center of the node box.
func (n Node) CenterX() float64 { return n.X + n.Width/2 }

// CenterY returns the vertical center of the node box.
func (n Node) CenterY() float64 { return n.Y + n.Height/2 }

// Connection is an edge to draw. Parent connections point from parent to
// child; spouse and sibling connections keep first-seen orientation.
type Connection struct {
	From string         `json:"from" bson:"from"`
	To   string         `json:"to" bson:"to"`
	Type ConnectionType `json:"type" bson:"type"`
}

// Result is a computed layout.
type Result struct {
	Seed        string       `json:"seed" bson:"seed"`
	Nodes       []Node       `json:"nodes" bson:"nodes"`
	Connections []Connection `json:"connections" bson:"connections"`
	Generations []int        `json:"generations" bson:"generations"`
	Width       float64      `json:"width" bson:"width"`
	Height      float64      `json:"height" bson:"height"`
	Options     Options      `json:"options" bson:"options"`
}

// Node returns the node for id.
func (r *Result) Node(id string) (Node, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Rows groups nodes by level, top row first, each row left to right.
func (r *Result) Rows() [][]Node {
	rows := make([][]Node, len(r.Generations))
	for _, n := range r.Nodes {
		if n.Level >= 0 && n.Level < len(rows) {
			rows[n.Level] = append(rows[n.Level], n)
		}
	}
	for _, row := range rows {
		slices.SortFunc(row, func(a, b Node) int { return a.Index - b.Index })
	}
	return rows
}

// GenerationOf returns the generation of every node, keyed by id.
func (r *Result) GenerationOf() map[string]int {
	out := make(map[string]int, len(r.Nodes))
	for _, n := range r.Nodes {
		out[n.ID] = n.Generation
	}
	return out
}

// Compute lays out members. It is a pure function of the roster, its
// order, and the options; it never fails. An empty roster yields an empty
// result.
func Compute(members []family.Member, opts ...Option) Result {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return ComputeWithOptions(members, o)
}

// ComputeWithOptions is [Compute] with an options struct.
func ComputeWithOptions(members []family.Member, o Options) Result {
	o = o.WithDefaults()
	res := Result{
		Nodes:       []Node{},
		Connections: []Connection{},
		Generations: []int{},
		Options:     o,
	}
	if len(members) == 0 {
		return res
	}

	res.Seed = Seed(members, o.Focus)
	gen := AssignGenerations(members, o.Focus)

	rows := make(map[int][]int)
	for i := range members {
		g := gen[members[i].ID]
		if _, ok := rows[g]; !ok {
			res.Generations = append(res.Generations, g)
		}
		rows[g] = append(rows[g], i)
	}
	if o.Order == Ascending {
		slices.Sort(res.Generations)
	} else {
		slices.SortFunc(res.Generations, func(a, b int) int { return b - a })
	}

	widest := 0.0
	for _, idxs := range rows {
		widest = max(widest, rowWidth(len(idxs), o))
	}

	res.Nodes = make([]Node, len(members))
	for level, g := range res.Generations {
		idxs := rows[g]
		start := o.Margin + (widest-rowWidth(len(idxs), o))/2
		for col, i := range idxs {
			m := &members[i]
			res.Nodes[i] = Node{
				ID:         m.ID,
				Name:       m.Name,
				Gender:     m.Gender.Normalize(),
				Generation: g,
				Level:      level,
				Index:      col,
				X:          start + float64(col)*(o.NodeWidth+o.Spacing),
				Y:          o.Margin + float64(level)*o.RowHeight,
				Width:      o.NodeWidth,
				Height:     o.NodeHeight,
			}
		}
	}

	res.Width = widest + 2*o.Margin
	res.Height = 2*o.Margin + float64(len(res.Generations)-1)*o.RowHeight + o.NodeHeight
	res.Connections = connections(members, o.Siblings)
	return res
}

func rowWidth(n int, o Options) float64 {
	if n == 0 {
		return 0
	}
	return float64(n)*o.NodeWidth + float64(n-1)*o.Spacing
}

// connections derives the edges to draw. Parent edges are collected from
// both Children and Parents lists; every pair is emitted once.
func connections(members []family.Member, siblings bool) []Connection {
	known := make(map[string]bool, len(members))
	for i := range members {
		known[members[i].ID] = true
	}

	out := []Connection{}
	directed := make(map[[2]string]bool)
	undirected := make(map[ConnectionType]map[[2]string]bool)

	emitParent := func(parent, child string) {
		if parent == child || !known[parent] || !known[child] {
			return
		}
		k := [2]string{parent, child}
		if directed[k] {
			return
		}
		directed[k] = true
		out = append(out, Connection{From: parent, To: child, Type: ConnectionParent})
	}
	emitPair := func(a, b string, t ConnectionType) {
		if a == b || !known[a] || !known[b] {
			return
		}
		k := [2]string{a, b}
		if a > b {
			k = [2]string{b, a}
		}
		if undirected[t] == nil {
			undirected[t] = make(map[[2]string]bool)
		}
		if undirected[t][k] {
			return
		}
		undirected[t][k] = true
		out = append(out, Connection{From: a, To: b, Type: t})
	}

	for i := range members {
		m := &members[i]
		for _, c := range m.Relationships.Children {
			emitParent(m.ID, c)
		}
		for _, p := range m.Relationships.Parents {
			emitParent(p, m.ID)
		}
		for _, s := range m.Relationships.Spouses {
			emitPair(m.ID, s, ConnectionSpouse)
		}
		if siblings {
			for _, s := range m.Relationships.Siblings {
				emitPair(m.ID, s, ConnectionSibling)
			}
		}
	}
	return out
}
