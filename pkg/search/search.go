// Package search finds members of a roster by fuzzy name match and by
// profile filters.
package search

import (
	"slices"

	"github.com/sahilm/fuzzy"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

// Query describes a member search. Zero-valued fields do not filter.
type Query struct {
	// Text is fuzzy-matched against member names.
	Text string
	// Gender keeps only members of this gender.
	Gender family.Gender
	// Living keeps only living (true) or deceased (false) members.
	Living *bool
	// BornAfter and BornBefore are inclusive birth-year bounds. Members with
	// no parseable birth date are excluded when either bound is set.
	BornAfter  int
	BornBefore int
	// Generation keeps only members on this generation. Generations supplies
	// the assignment; when nil it is computed with Focus as the seed.
	Generation  *int
	Generations map[string]int
	Focus       string
	// Limit caps the number of matches; 0 means no limit.
	Limit int
}

// Match is one search hit.
type Match struct {
	Member         family.Member `json:"member"`
	Score          int           `json:"score"`
	MatchedIndexes []int         `json:"matched_indexes,omitempty"`
}

// Search returns the members matching q. With Text set, matches are ranked
// by score, ties broken by roster order; otherwise roster order is kept.
func Search(members []family.Member, q Query) []Match {
	candidates := filter(members, q)

	out := []Match{}
	if q.Text == "" {
		for _, m := range candidates {
			out = append(out, Match{Member: m})
		}
		return limit(out, q.Limit)
	}

	names := make([]string, len(candidates))
	for i, m := range candidates {
		names[i] = m.Name
	}
	found := fuzzy.Find(q.Text, names)
	slices.SortStableFunc(found, func(a, b fuzzy.Match) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.Index - b.Index
	})
	for _, f := range found {
		out = append(out, Match{
			Member:         candidates[f.Index],
			Score:          f.Score,
			MatchedIndexes: f.MatchedIndexes,
		})
	}
	return limit(out, q.Limit)
}

func filter(members []family.Member, q Query) []family.Member {
	gens := q.Generations
	if q.Generation != nil && gens == nil {
		gens = layout.AssignGenerations(members, q.Focus)
	}
	gender := q.Gender
	if gender != "" {
		gender = gender.Normalize()
	}

	var out []family.Member
	for i := range members {
		m := &members[i]
		if gender != "" && m.Gender.Normalize() != gender {
			continue
		}
		if q.Living != nil && *q.Living == m.IsDeceased() {
			continue
		}
		if q.BornAfter != 0 || q.BornBefore != 0 {
			y, ok := m.BirthYear()
			if !ok || (q.BornAfter != 0 && y < q.BornAfter) || (q.BornBefore != 0 && y > q.BornBefore) {
				continue
			}
		}
		if q.Generation != nil {
			g, ok := gens[m.ID]
			if !ok || g != *q.Generation {
				continue
			}
		}
		out = append(out, *m)
	}
	return out
}

func limit(ms []Match, n int) []Match {
	if n > 0 && len(ms) > n {
		return ms[:n]
	}
	return ms
}
