package family

// Stats summarizes a roster.
type Stats struct {
	Members      int `json:"members"`
	Living       int `json:"living"`
	Deceased     int `json:"deceased"`
	ParentLinks  int `json:"parent_links"`
	SpousePairs  int `json:"spouse_pairs"`
	SiblingPairs int `json:"sibling_pairs"`
	Components   int `json:"components"`
}

// Stats counts members, distinct edges per kind and connected components.
// Edges are counted once per unordered pair regardless of which endpoint
// lists them.
func (r *Roster) Stats() Stats {
	s := Stats{Members: len(r.Members)}
	idx := r.Index()

	type pair struct{ a, b string }
	parent := make(map[pair]bool)
	spouse := make(map[pair]bool)
	sibling := make(map[pair]bool)
	ordered := func(a, b string) pair {
		if a > b {
			a, b = b, a
		}
		return pair{a, b}
	}

	adj := make(map[string][]string, len(r.Members))
	link := func(a, b string) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}

	for i := range r.Members {
		m := &r.Members[i]
		if m.IsDeceased() {
			s.Deceased++
		} else {
			s.Living++
		}
		for _, rel := range Relations {
			for _, other := range m.Relationships.List(rel) {
				if _, ok := idx[other]; !ok || other == m.ID {
					continue
				}
				link(m.ID, other)
				switch rel {
				case RelationParent:
					parent[pair{other, m.ID}] = true
				case RelationChild:
					parent[pair{m.ID, other}] = true
				case RelationSpouse:
					spouse[ordered(m.ID, other)] = true
				case RelationSibling:
					sibling[ordered(m.ID, other)] = true
				}
			}
		}
	}
	s.ParentLinks = len(parent)
	s.SpousePairs = len(spouse)
	s.SiblingPairs = len(sibling)

	seen := make(map[string]bool, len(r.Members))
	for _, m := range r.Members {
		if seen[m.ID] {
			continue
		}
		s.Components++
		seen[m.ID] = true
		stack := []string{m.ID}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, n := range adj[cur] {
				if !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return s
}
