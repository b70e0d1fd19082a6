package family

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/legacylink/legacylink/pkg/errors"
)

// Roster is the ordered list of members of one family tree.
//
// Roster methods are the mutation boundary: they keep edges symmetric,
// reject dangling ids and parent cycles, and cascade edge cleanup on
// removal. Data that arrives by other paths (file import, a store written by
// another program) may violate these invariants; [Roster.Validate] reports
// such problems and [Roster.Symmetrize] repairs them.
//
// The zero value is an empty roster ready to use. A Roster is not safe for
// concurrent mutation.
type Roster struct {
	Members []Member `json:"members" yaml:"members" bson:"members"`
}

// NewRoster returns a roster holding the given members as-is.
func NewRoster(members ...Member) *Roster {
	return &Roster{Members: members}
}

// Len returns the number of members.
func (r *Roster) Len() int { return len(r.Members) }

// Index returns a map from member id to roster position.
// When ids are duplicated the first occurrence wins.
func (r *Roster) Index() map[string]int {
	idx := make(map[string]int, len(r.Members))
	for i := range r.Members {
		if _, ok := idx[r.Members[i].ID]; !ok {
			idx[r.Members[i].ID] = i
		}
	}
	return idx
}

func (r *Roster) find(id string) int {
	return slices.IndexFunc(r.Members, func(m Member) bool { return m.ID == id })
}

// Has reports whether a member with id exists.
func (r *Roster) Has(id string) bool { return r.find(id) >= 0 }

// Get returns a pointer to the member with id. The pointer is invalidated by
// the next Add or Remove.
func (r *Roster) Get(id string) (*Member, error) {
	i := r.find(id)
	if i < 0 {
		return nil, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", id)
	}
	return &r.Members[i], nil
}

// Clone returns a deep copy of the roster.
func (r *Roster) Clone() *Roster {
	out := &Roster{Members: make([]Member, len(r.Members))}
	for i := range r.Members {
		out.Members[i] = r.Members[i].Clone()
	}
	return out
}

// Add appends m and returns the stored copy. An empty ID is replaced by a
// fresh UUID. Edges listed on m must reference existing members; their
// reverse edges are recorded on the other endpoints.
func (r *Roster) Add(m Member) (Member, error) {
	m = m.Clone()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Gender = ParseGender(string(m.Gender))
	if err := m.validate(); err != nil {
		return Member{}, err
	}
	if r.Has(m.ID) {
		return Member{}, errors.New(errors.ErrCodeDuplicateMember, "member %q already exists", m.ID)
	}

	edges := m.Relationships
	m.Relationships = Relationships{}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	for i := range m.Media {
		if m.Media[i].ID == "" {
			m.Media[i].ID = uuid.NewString()
		}
	}

	next := r.Clone()
	next.Members = append(next.Members, m)
	for _, rel := range Relations {
		for _, other := range edges.List(rel) {
			if err := next.Link(m.ID, other, rel); err != nil {
				return Member{}, err
			}
		}
	}
	*r = *next

	added, _ := r.Get(m.ID)
	return added.Clone(), nil
}

// Update replaces the profile fields of an existing member. ID, edges and
// CreatedAt are kept; use Link and Unlink to change edges.
func (r *Roster) Update(m Member) (Member, error) {
	cur, err := r.Get(m.ID)
	if err != nil {
		return Member{}, err
	}
	next := m.Clone()
	next.Gender = ParseGender(string(next.Gender))
	next.Relationships = cur.Relationships.Clone()
	next.CreatedAt = cur.CreatedAt
	if err := next.validate(); err != nil {
		return Member{}, err
	}
	for i := range next.Media {
		if next.Media[i].ID == "" {
			next.Media[i].ID = uuid.NewString()
		}
	}
	next.UpdatedAt = time.Now().UTC()
	*cur = next
	return next.Clone(), nil
}

// Remove deletes the member with id and removes every edge pointing at it.
func (r *Roster) Remove(id string) (Member, error) {
	i := r.find(id)
	if i < 0 {
		return Member{}, errors.New(errors.ErrCodeMemberNotFound, "member %q not found", id)
	}
	removed := r.Members[i]
	r.Members = slices.Delete(r.Members, i, i+1)
	for j := range r.Members {
		for _, rel := range Relations {
			if r.Members[j].Relationships.remove(rel, id) {
				r.Members[j].UpdatedAt = time.Now().UTC()
			}
		}
	}
	return removed, nil
}

// Link records that other is id's rel, and the inverse edge on other.
// Linking is idempotent. Self links, unknown ids and parent links that
// would make a member its own ancestor are rejected.
func (r *Roster) Link(id, other string, rel Relation) error {
	if _, err := ParseRelation(string(rel)); err != nil {
		return err
	}
	if id == other {
		return errors.New(errors.ErrCodeInvalidRelation, "member %q cannot be linked to itself", id)
	}
	a, b := r.find(id), r.find(other)
	if a < 0 {
		return errors.New(errors.ErrCodeMemberNotFound, "member %q not found", id)
	}
	if b < 0 {
		return errors.New(errors.ErrCodeMemberNotFound, "member %q not found", other)
	}

	switch rel {
	case RelationParent:
		if r.isAncestor(id, other) {
			return errors.New(errors.ErrCodeCycle, "%s cannot be a parent of its own ancestor %s", other, id)
		}
	case RelationChild:
		if r.isAncestor(other, id) {
			return errors.New(errors.ErrCodeCycle, "%s cannot be a child of its own descendant %s", other, id)
		}
	}

	now := time.Now().UTC()
	if r.Members[a].Relationships.add(rel, other) {
		r.Members[a].UpdatedAt = now
	}
	if r.Members[b].Relationships.add(rel.Inverse(), id) {
		r.Members[b].UpdatedAt = now
	}
	return nil
}

// Unlink removes the rel edge between id and other in both directions.
func (r *Roster) Unlink(id, other string, rel Relation) error {
	if _, err := ParseRelation(string(rel)); err != nil {
		return err
	}
	a, b := r.find(id), r.find(other)
	if a < 0 {
		return errors.New(errors.ErrCodeMemberNotFound, "member %q not found", id)
	}
	if b < 0 {
		return errors.New(errors.ErrCodeMemberNotFound, "member %q not found", other)
	}
	now := time.Now().UTC()
	if r.Members[a].Relationships.remove(rel, other) {
		r.Members[a].UpdatedAt = now
	}
	if r.Members[b].Relationships.remove(rel.Inverse(), id) {
		r.Members[b].UpdatedAt = now
	}
	return nil
}

// isAncestor reports whether anc is reachable from id by walking parent
// edges upward. Edges are read from both endpoints.
func (r *Roster) isAncestor(anc, id string) bool {
	up := r.parentMap()
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range up[cur] {
			if p == anc {
				return true
			}
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return false
}

// parentMap returns child id -> parent ids, merging both edge directions.
func (r *Roster) parentMap() map[string][]string {
	up := make(map[string][]string, len(r.Members))
	addEdge := func(child, parent string) {
		if !slices.Contains(up[child], parent) {
			up[child] = append(up[child], parent)
		}
	}
	for i := range r.Members {
		m := &r.Members[i]
		for _, p := range m.Relationships.Parents {
			addEdge(m.ID, p)
		}
		for _, c := range m.Relationships.Children {
			addEdge(c, m.ID)
		}
	}
	return up
}

// Merge folds incoming members into r. A member whose id is already present
// takes the incoming profile and the union of both edge sets; other members
// are appended. Genders go through [ParseGender] and edges are then made
// symmetric. It returns how many members were added and updated.
//
// Every incoming profile is checked first; if one is invalid r is left
// untouched. Incoming data is not checked for cycles; run [Roster.Validate]
// afterwards.
func (r *Roster) Merge(incoming []Member) (added, updated int, err error) {
	prepared := make([]Member, len(incoming))
	for i, in := range incoming {
		in = in.Clone()
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		in.Gender = ParseGender(string(in.Gender))
		prepared[i] = in
	}
	if err := ValidateMembers(prepared); err != nil {
		return 0, 0, err
	}

	idx := r.Index()
	for _, in := range prepared {
		i, ok := idx[in.ID]
		if !ok {
			idx[in.ID] = len(r.Members)
			r.Members = append(r.Members, in)
			added++
			continue
		}
		cur := &r.Members[i]
		edges := cur.Relationships.Clone()
		for _, rel := range Relations {
			for _, other := range in.Relationships.List(rel) {
				edges.add(rel, other)
			}
		}
		if in.CreatedAt.IsZero() {
			in.CreatedAt = cur.CreatedAt
		}
		in.Relationships = edges
		*cur = in
		updated++
	}
	r.Symmetrize()
	return added, updated, nil
}
