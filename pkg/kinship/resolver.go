package kinship

import (
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// Relationship is the derived relation of one member to another.
type Relationship struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
}

// Pair is one entry of [AllRelationshipsOf]: Member is Relationship.Label
// of the person the batch was computed for.
type Pair struct {
	Member       family.Member `json:"member"`
	Relationship Relationship  `json:"relationship"`
}

type index map[string]*family.Member

// predicate reports whether person relates to relativeTo in one way.
type predicate func(person string, relativeTo *family.Member, idx index) bool

type rule struct {
	kind  Kind
	match predicate
}

// rules is evaluated in order; the first match wins.
var rules = []rule{
	{KindParent, path(family.RelationParent)},
	{KindChild, path(family.RelationChild)},
	{KindSpouse, path(family.RelationSpouse)},
	{KindSibling, path(family.RelationSibling)},
	{KindGrandparent, path(family.RelationParent, family.RelationParent)},
	{KindGrandchild, path(family.RelationChild, family.RelationChild)},
	{KindAuntUncle, path(family.RelationParent, family.RelationSibling)},
	{KindNephewNiece, path(family.RelationSibling, family.RelationChild)},
	{KindCousin, path(family.RelationParent, family.RelationSibling, family.RelationChild)},
	{KindParentInLaw, path(family.RelationSpouse, family.RelationParent)},
	{KindSiblingInLaw, anyOf(
		path(family.RelationSpouse, family.RelationSibling),
		path(family.RelationSibling, family.RelationSpouse),
	)},
}

// path matches when person is found by following steps from relativeTo.
// Every step but the last resolves ids through the roster and skips ids
// that are not in it; the last step only compares ids.
func path(steps ...family.Relation) predicate {
	return func(person string, relativeTo *family.Member, idx index) bool {
		frontier := []*family.Member{relativeTo}
		for i, step := range steps {
			last := i == len(steps)-1
			var next []*family.Member
			for _, m := range frontier {
				for _, id := range m.Relationships.List(step) {
					if last {
						if id == person {
							return true
						}
						continue
					}
					if n, ok := idx[id]; ok {
						next = append(next, n)
					}
				}
			}
			frontier = next
		}
		return false
	}
}

func anyOf(preds ...predicate) predicate {
	return func(person string, relativeTo *family.Member, idx index) bool {
		for _, p := range preds {
			if p(person, relativeTo, idx) {
				return true
			}
		}
		return false
	}
}

// Resolver answers kinship queries over one roster snapshot. It holds an
// id index built once; it never mutates the members it was given and is
// safe for concurrent use.
type Resolver struct {
	members []family.Member
	idx     index
}

// NewResolver indexes members. When ids repeat, the first member wins.
func NewResolver(members []family.Member) *Resolver {
	idx := make(index, len(members))
	for i := range members {
		if _, ok := idx[members[i].ID]; !ok {
			idx[members[i].ID] = &members[i]
		}
	}
	return &Resolver{members: members, idx: idx}
}

// Relate returns what person is to relativeTo. It never fails; when no rule
// matches it returns the Family Member fallback.
func (r *Resolver) Relate(person, relativeTo *family.Member) Relationship {
	kind := KindFamilyMember
	if person.ID == relativeTo.ID {
		kind = KindSelf
	} else {
		for _, rule := range rules {
			if rule.match(person.ID, relativeTo, r.idx) {
				kind = rule.kind
				break
			}
		}
	}
	return Relationship{Kind: kind, Label: Label(kind, person.Gender)}
}

// Resolve looks both members up by id and relates them.
func (r *Resolver) Resolve(personID, relativeToID string) (Relationship, error) {
	person, ok := r.idx[personID]
	if !ok {
		return Relationship{}, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", personID)
	}
	relativeTo, ok := r.idx[relativeToID]
	if !ok {
		return Relationship{}, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", relativeToID)
	}
	return r.Relate(person, relativeTo), nil
}

// AllOf relates every other roster member to person, in roster order.
// Members sharing person's id are excluded.
func (r *Resolver) AllOf(person *family.Member) []Pair {
	out := make([]Pair, 0, len(r.members))
	for i := range r.members {
		m := &r.members[i]
		if m.ID == person.ID {
			continue
		}
		out = append(out, Pair{Member: *m, Relationship: r.Relate(m, person)})
	}
	return out
}

// All is [Resolver.AllOf] by id.
func (r *Resolver) All(personID string) ([]Pair, error) {
	person, ok := r.idx[personID]
	if !ok {
		return nil, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", personID)
	}
	return r.AllOf(person), nil
}

// Resolve returns what person is to relativeTo within members.
func Resolve(person, relativeTo family.Member, members []family.Member) Relationship {
	return NewResolver(members).Relate(&person, &relativeTo)
}

// AllRelationshipsOf returns, for every other member of members, what that
// member is to person. Order follows members; person itself is excluded.
func AllRelationshipsOf(person family.Member, members []family.Member) []Pair {
	return NewResolver(members).AllOf(&person)
}
