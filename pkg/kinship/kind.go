package kinship

import "github.com/legacylink/legacylink/pkg/family"

// Kind is a derived relationship class.
type Kind int

const (
	KindFamilyMember Kind = iota
	KindSelf
	KindParent
	KindChild
	KindSpouse
	KindSibling
	KindGrandparent
	KindGrandchild
	KindAuntUncle
	KindNephewNiece
	KindCousin
	KindParentInLaw
	KindSiblingInLaw
)

var kindNames = map[Kind]string{
	KindFamilyMember: "family_member",
	KindSelf:         "self",
	KindParent:       "parent",
	KindChild:        "child",
	KindSpouse:       "spouse",
	KindSibling:      "sibling",
	KindGrandparent:  "grandparent",
	KindGrandchild:   "grandchild",
	KindAuntUncle:    "aunt_uncle",
	KindNephewNiece:  "nephew_niece",
	KindCousin:       "cousin",
	KindParentInLaw:  "parent_in_law",
	KindSiblingInLaw: "sibling_in_law",
}

// String returns the snake_case name used in JSON output.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindFamilyMember]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to [KindFamilyMember].
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	*k = KindFamilyMember
	return nil
}

// labels holds {male, female, other} terms per kind.
var labels = map[Kind][3]string{
	KindFamilyMember: {"Family Member", "Family Member", "Family Member"},
	KindSelf:         {"Self", "Self", "Self"},
	KindParent:       {"Father", "Mother", "Parent"},
	KindChild:        {"Son", "Daughter", "Child"},
	KindSpouse:       {"Husband", "Wife", "Spouse"},
	KindSibling:      {"Brother", "Sister", "Sibling"},
	KindGrandparent:  {"Grandfather", "Grandmother", "Grandparent"},
	KindGrandchild:   {"Grandson", "Granddaughter", "Grandchild"},
	KindAuntUncle:    {"Uncle", "Aunt", "Aunt/Uncle"},
	KindNephewNiece:  {"Nephew", "Niece", "Nephew/Niece"},
	KindCousin:       {"Cousin", "Cousin", "Cousin"},
	KindParentInLaw:  {"Father-in-law", "Mother-in-law", "Parent-in-law"},
	KindSiblingInLaw: {"Brother-in-law", "Sister-in-law", "Sibling-in-law"},
}

// Label returns the term for kind as used for a person of gender g.
func Label(kind Kind, g family.Gender) string {
	terms, ok := labels[kind]
	if !ok {
		terms = labels[KindFamilyMember]
	}
	switch g.Normalize() {
	case family.GenderMale:
		return terms[0]
	case family.GenderFemale:
		return terms[1]
	default:
		return terms[2]
	}
}
