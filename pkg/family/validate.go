package family

import (
	"fmt"
	"slices"
)

// IssueKind classifies a roster integrity problem.
type IssueKind string

const (
	IssueDuplicateID   IssueKind = "duplicate_id"
	IssueDanglingEdge  IssueKind = "dangling_edge"
	IssueSelfEdge      IssueKind = "self_edge"
	IssueAsymmetric    IssueKind = "asymmetric_edge"
	IssueParentCycle   IssueKind = "parent_cycle"
	IssueDuplicateEdge IssueKind = "duplicate_edge"
)

// Issue describes one integrity problem found by [Roster.Validate].
type Issue struct {
	Kind     IssueKind `json:"kind"`
	MemberID string    `json:"member_id"`
	OtherID  string    `json:"other_id,omitempty"`
	Relation Relation  `json:"relation,omitempty"`
	Message  string    `json:"message"`
}

func (i Issue) String() string { return i.Message }

// Validate reports duplicate ids, dangling, self, duplicate and asymmetric
// edges, and parent cycles. A nil result means the roster satisfies every
// invariant the kinship and layout engines assume. Validate never mutates.
func (r *Roster) Validate() []Issue {
	var issues []Issue
	idx := r.Index()

	seen := make(map[string]bool, len(r.Members))
	for _, m := range r.Members {
		if seen[m.ID] {
			issues = append(issues, Issue{
				Kind:     IssueDuplicateID,
				MemberID: m.ID,
				Message:  fmt.Sprintf("member id %q appears more than once", m.ID),
			})
		}
		seen[m.ID] = true
	}

	for i := range r.Members {
		m := &r.Members[i]
		for _, rel := range Relations {
			listed := make(map[string]bool)
			for _, other := range m.Relationships.List(rel) {
				issue := Issue{MemberID: m.ID, OtherID: other, Relation: rel}
				switch j, ok := idx[other]; {
				case listed[other]:
					issue.Kind = IssueDuplicateEdge
					issue.Message = fmt.Sprintf("%s lists %s as %s more than once", m.ID, other, rel)
				case other == m.ID:
					issue.Kind = IssueSelfEdge
					issue.Message = fmt.Sprintf("%s lists itself as %s", m.ID, rel)
				case !ok:
					issue.Kind = IssueDanglingEdge
					issue.Message = fmt.Sprintf("%s lists unknown member %s as %s", m.ID, other, rel)
				case !r.Members[j].Relationships.Contains(rel.Inverse(), m.ID):
					issue.Kind = IssueAsymmetric
					issue.Message = fmt.Sprintf("%s lists %s as %s but %s does not list %s as %s",
						m.ID, other, rel, other, m.ID, rel.Inverse())
				default:
					listed[other] = true
					continue
				}
				listed[other] = true
				issues = append(issues, issue)
			}
		}
	}

	for _, e := range r.backEdges() {
		issues = append(issues, Issue{
			Kind:     IssueParentCycle,
			MemberID: e[0],
			OtherID:  e[1],
			Relation: RelationChild,
			Message:  fmt.Sprintf("%s is both an ancestor and a descendant of %s", e[0], e[1]),
		})
	}
	return issues
}

// backEdges finds parent->child edges that close a cycle, using a
// white/gray/black depth-first search rooted at members without parents
// first and then at every remaining member in roster order.
func (r *Roster) backEdges() [][2]string {
	const (
		white = iota
		gray
		black
	)

	up := r.parentMap()
	down := make(map[string][]string, len(r.Members))
	for child, parents := range up {
		for _, p := range parents {
			down[p] = append(down[p], child)
		}
	}
	for p := range down {
		slices.Sort(down[p])
	}

	color := make(map[string]int)
	var back [][2]string

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		for _, child := range down[node] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				back = append(back, [2]string{node, child})
			}
		}
		color[node] = black
	}

	for _, m := range r.Members {
		if len(up[m.ID]) == 0 && color[m.ID] == white {
			dfs(m.ID)
		}
	}
	for _, m := range r.Members {
		if color[m.ID] == white {
			dfs(m.ID)
		}
	}
	return back
}

// BreakCycles removes parent/child edges that close a cycle, in both
// directions, and returns how many were removed.
func (r *Roster) BreakCycles() int {
	back := r.backEdges()
	idx := r.Index()
	for _, e := range back {
		parent, child := e[0], e[1]
		if i, ok := idx[parent]; ok {
			r.Members[i].Relationships.remove(RelationChild, child)
		}
		if i, ok := idx[child]; ok {
			r.Members[i].Relationships.remove(RelationParent, parent)
		}
	}
	return len(back)
}

// Symmetrize repairs edge lists in place: self, dangling and duplicate
// edges are dropped and every missing reverse edge is added. It returns the
// number of changes made. Parent cycles are left alone; see
// [Roster.BreakCycles].
func (r *Roster) Symmetrize() int {
	idx := r.Index()
	changes := 0

	for i := range r.Members {
		m := &r.Members[i]
		for _, rel := range Relations {
			list := m.Relationships.List(rel)
			kept := make([]string, 0, len(list))
			for _, other := range list {
				if _, ok := idx[other]; !ok || other == m.ID || slices.Contains(kept, other) {
					changes++
					continue
				}
				kept = append(kept, other)
			}
			m.Relationships.set(rel, kept)
		}
	}

	for i := range r.Members {
		m := &r.Members[i]
		for _, rel := range Relations {
			for _, other := range m.Relationships.List(rel) {
				j := idx[other]
				if r.Members[j].Relationships.add(rel.Inverse(), m.ID) {
					changes++
				}
			}
		}
	}
	return changes
}

// Repair runs [Roster.Symmetrize] and then [Roster.BreakCycles] and
// returns the change count of each.
func (r *Roster) Repair() (symmetrized, cyclesBroken int) {
	symmetrized = r.Symmetrize()
	cyclesBroken = r.BreakCycles()
	return symmetrized, cyclesBroken
}
