package family

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/legacylink/legacylink/pkg/errors"
)

// Gender selects gendered kinship labels. It never affects structure.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender normalizes s. Unknown and empty values map to [GenderOther].
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderOther
	}
}

// Normalize returns g, or [GenderOther] for values outside the vocabulary.
func (g Gender) Normalize() Gender {
	switch g {
	case GenderMale, GenderFemale:
		return g
	default:
		return GenderOther
	}
}

// Relation names one of the four stored edge kinds.
type Relation string

const (
	RelationParent  Relation = "parent"
	RelationChild   Relation = "child"
	RelationSibling Relation = "sibling"
	RelationSpouse  Relation = "spouse"
)

// Relations lists the stored edge kinds in canonical order.
var Relations = []Relation{RelationParent, RelationChild, RelationSibling, RelationSpouse}

// ParseRelation accepts singular and plural forms ("parent", "parents").
func ParseRelation(s string) (Relation, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "parent":
		return RelationParent, nil
	case "child", "children":
		return RelationChild, nil
	case "sibling":
		return RelationSibling, nil
	case "spouse":
		return RelationSpouse, nil
	}
	return "", errors.New(errors.ErrCodeInvalidRelation,
		"invalid relation %q (must be one of: parent, child, sibling, spouse)", s)
}

// Inverse returns the relation recorded on the other endpoint.
func (r Relation) Inverse() Relation {
	switch r {
	case RelationParent:
		return RelationChild
	case RelationChild:
		return RelationParent
	default:
		return r
	}
}

// Relationships holds the four adjacency sets of a member.
// Lists behave as sets; order is preserved for deterministic output.
type Relationships struct {
	Parents  []string `json:"parents" yaml:"parents" bson:"parents"`
	Children []string `json:"children" yaml:"children" bson:"children"`
	Siblings []string `json:"siblings" yaml:"siblings" bson:"siblings"`
	Spouses  []string `json:"spouses" yaml:"spouses" bson:"spouses"`
}

// List returns the id list for rel.
func (r *Relationships) List(rel Relation) []string {
	switch rel {
	case RelationParent:
		return r.Parents
	case RelationChild:
		return r.Children
	case RelationSibling:
		return r.Siblings
	case RelationSpouse:
		return r.Spouses
	}
	return nil
}

func (r *Relationships) set(rel Relation, ids []string) {
	switch rel {
	case RelationParent:
		r.Parents = ids
	case RelationChild:
		r.Children = ids
	case RelationSibling:
		r.Siblings = ids
	case RelationSpouse:
		r.Spouses = ids
	}
}

// Contains reports whether id is in the rel list.
func (r *Relationships) Contains(rel Relation, id string) bool {
	return slices.Contains(r.List(rel), id)
}

func (r *Relationships) add(rel Relation, id string) bool {
	if r.Contains(rel, id) {
		return false
	}
	r.set(rel, append(r.List(rel), id))
	return true
}

func (r *Relationships) remove(rel Relation, id string) bool {
	list := r.List(rel)
	out := slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == id })
	if len(out) == len(list) {
		return false
	}
	r.set(rel, out)
	return true
}

// Count returns the total number of stored edges.
func (r *Relationships) Count() int {
	return len(r.Parents) + len(r.Children) + len(r.Siblings) + len(r.Spouses)
}

// Clone returns a deep copy.
func (r Relationships) Clone() Relationships {
	return Relationships{
		Parents:  slices.Clone(r.Parents),
		Children: slices.Clone(r.Children),
		Siblings: slices.Clone(r.Siblings),
		Spouses:  slices.Clone(r.Spouses),
	}
}

// MediaItem is an attachment on a member's profile.
type MediaItem struct {
	ID      string    `json:"id" yaml:"id" bson:"id"`
	Kind    string    `json:"kind" yaml:"kind" bson:"kind"` // photo, video, audio, document
	URI     string    `json:"uri" yaml:"uri" bson:"uri"`
	Caption string    `json:"caption,omitempty" yaml:"caption,omitempty" bson:"caption,omitempty"`
	AddedAt time.Time `json:"added_at,omitzero" yaml:"added_at,omitempty" bson:"added_at,omitempty"`
}

// Member is a node in the family graph.
//
// Only ID, Gender, and Relationships are read by the kinship and layout
// engines. Everything else is profile payload.
type Member struct {
	ID            string        `json:"id" yaml:"id" bson:"id"`
	Name          string        `json:"name" yaml:"name" bson:"name"`
	Gender        Gender        `json:"gender" yaml:"gender" bson:"gender"`
	DateOfBirth   string        `json:"date_of_birth,omitempty" yaml:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	DateOfDeath   string        `json:"date_of_death,omitempty" yaml:"date_of_death,omitempty" bson:"date_of_death,omitempty"`
	Relationships Relationships `json:"relationships" yaml:"relationships" bson:"relationships"`

	Photo       string            `json:"photo,omitempty" yaml:"photo,omitempty" bson:"photo,omitempty"`
	Biography   string            `json:"biography,omitempty" yaml:"biography,omitempty" bson:"biography,omitempty"`
	VoiceNote   string            `json:"voice_note,omitempty" yaml:"voice_note,omitempty" bson:"voice_note,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty" yaml:"social_links,omitempty" bson:"social_links,omitempty"`
	Media       []MediaItem       `json:"media,omitempty" yaml:"media,omitempty" bson:"media,omitempty"`
	Notes       string            `json:"notes,omitempty" yaml:"notes,omitempty" bson:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// IsDeceased reports whether a date of death is recorded.
func (m *Member) IsDeceased() bool { return m.DateOfDeath != "" }

// BirthYear returns the year of birth, if known and well-formed.
func (m *Member) BirthYear() (int, bool) { return year(m.DateOfBirth) }

// DeathYear returns the year of death, if known and well-formed.
func (m *Member) DeathYear() (int, bool) { return year(m.DateOfDeath) }

func year(s string) (int, bool) {
	t, ok := errors.ParseDate(s)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}

// Lifespan formats the known years: "1921-1998", "b. 1950", "d. 1944", or "".
func (m *Member) Lifespan() string {
	born, hasBorn := m.BirthYear()
	died, hasDied := m.DeathYear()
	switch {
	case hasBorn && hasDied:
		return fmt.Sprintf("%d-%d", born, died)
	case hasBorn:
		return fmt.Sprintf("b. %d", born)
	case hasDied:
		return fmt.Sprintf("d. %d", died)
	case m.IsDeceased():
		return "deceased"
	}
	return ""
}

// Age returns the age in whole years at now, or at death for deceased
// members. It reports false when the date of birth is unknown.
func (m *Member) Age(now time.Time) (int, bool) {
	born, ok := errors.ParseDate(m.DateOfBirth)
	if !ok {
		return 0, false
	}
	end := now
	if m.IsDeceased() {
		died, ok := errors.ParseDate(m.DateOfDeath)
		if !ok {
			return 0, false
		}
		end = died
	}
	age := end.Year() - born.Year()
	if end.Month() < born.Month() || (end.Month() == born.Month() && end.Day() < born.Day()) {
		age--
	}
	return max(age, 0), true
}

// Clone returns a deep copy of m.
func (m Member) Clone() Member {
	c := m
	c.Relationships = m.Relationships.Clone()
	c.Media = slices.Clone(m.Media)
	if m.SocialLinks != nil {
		c.SocialLinks = make(map[string]string, len(m.SocialLinks))
		for k, v := range m.SocialLinks {
			c.SocialLinks[k] = v
		}
	}
	return c
}

// ValidateMembers checks the profile fields of every member: id, name,
// dates and social links. Edges are checked by [Roster.Validate].
func ValidateMembers(members []Member) error {
	for i := range members {
		if err := members[i].validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMember, err, "member %d (%q)", i+1, members[i].ID)
		}
	}
	return nil
}

// validate checks the member's own fields, not its edges.
func (m *Member) validate() error {
	if err := errors.ValidateMemberID(m.ID); err != nil {
		return err
	}
	if err := errors.ValidateName(m.Name); err != nil {
		return err
	}
	if err := errors.ValidateDate(m.DateOfBirth); err != nil {
		return err
	}
	if err := errors.ValidateDate(m.DateOfDeath); err != nil {
		return err
	}
	for platform, link := range m.SocialLinks {
		if err := errors.ValidateURL(link); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidMember, err, "social link %q", platform)
		}
	}
	return nil
}
