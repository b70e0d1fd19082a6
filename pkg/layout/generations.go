package layout

import "github.com/legacylink/legacylink/pkg/family"

// step is one directed generation constraint: to should sit at
// generation(from) + delta or higher.
type step struct {
	to    string
	delta int
}

// adjacency returns, per member id, the proposals it makes to its
// neighbours. Edges are read from both endpoints, so a relation recorded on
// only one side still constrains both. Ids missing from the roster and self
// edges are dropped. Neighbour order follows roster order, then list order.
func adjacency(members []family.Member, known map[string]bool) map[string][]step {
	adj := make(map[string][]step, len(members))
	type key struct {
		from, to string
		delta    int
	}
	seen := make(map[key]bool)
	add := func(from, to string, delta int) {
		if from == to || !known[from] || !known[to] {
			return
		}
		k := key{from, to, delta}
		if seen[k] {
			return
		}
		seen[k] = true
		adj[from] = append(adj[from], step{to: to, delta: delta})
	}

	for i := range members {
		m := &members[i]
		for _, p := range m.Relationships.Parents {
			add(m.ID, p, +1)
			add(p, m.ID, -1)
		}
		for _, c := range m.Relationships.Children {
			add(m.ID, c, -1)
			add(c, m.ID, +1)
		}
		for _, s := range m.Relationships.Siblings {
			add(m.ID, s, 0)
			add(s, m.ID, 0)
		}
		for _, s := range m.Relationships.Spouses {
			add(m.ID, s, 0)
			add(s, m.ID, 0)
		}
	}
	return adj
}

// Seed picks the member generation 0 is anchored at: focus when it is in
// the roster, else the first member without parents in the roster, else the
// first member. It returns "" for an empty roster.
func Seed(members []family.Member, focus string) string {
	if len(members) == 0 {
		return ""
	}
	known := make(map[string]bool, len(members))
	for i := range members {
		known[members[i].ID] = true
	}
	if focus != "" && known[focus] {
		return focus
	}
	for i := range members {
		hasParent := false
		for _, p := range members[i].Relationships.Parents {
			if known[p] && p != members[i].ID {
				hasParent = true
				break
			}
		}
		if !hasParent {
			return members[i].ID
		}
	}
	return members[0].ID
}

// AssignGenerations places every member on an integer generation; higher
// is older.
//
// The seed (see [Seed]) starts at 0. A member at generation G proposes G+1
// to its parents, G-1 to its children, and G to its siblings and spouses;
// a member takes the maximum of its current value and any proposal, and is
// re-queued whenever its value changes. Members the seed cannot reach are
// seeded at 0 in roster order, one component at a time.
//
// On consistent data the result satisfies generation(parent) >=
// generation(child)+1 for every parent edge. Contradictory data (parent
// cycles, a spouse who is also a grandchild) can keep raising values
// forever; each member is therefore queued at most len(members)+1 times,
// which bounds the work and always yields a total assignment.
func AssignGenerations(members []family.Member, focus string) map[string]int {
	gen := make(map[string]int, len(members))
	if len(members) == 0 {
		return gen
	}

	known := make(map[string]bool, len(members))
	for i := range members {
		known[members[i].ID] = true
	}
	adj := adjacency(members, known)

	limit := len(members) + 1
	enqueued := make(map[string]int, len(members))
	inQueue := make(map[string]bool, len(members))
	var queue []string

	push := func(id string) {
		if inQueue[id] {
			return
		}
		inQueue[id] = true
		enqueued[id]++
		queue = append(queue, id)
	}

	propagate := func(seed string) {
		gen[seed] = 0
		push(seed)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			inQueue[cur] = false

			g := gen[cur]
			for _, s := range adj[cur] {
				proposed := g + s.delta
				if old, placed := gen[s.to]; placed && proposed <= old {
					continue
				}
				if !inQueue[s.to] && enqueued[s.to] >= limit {
					continue
				}
				gen[s.to] = proposed
				push(s.to)
			}
		}
	}

	propagate(Seed(members, focus))
	for i := range members {
		if _, ok := gen[members[i].ID]; !ok {
			propagate(members[i].ID)
		}
	}
	return gen
}
