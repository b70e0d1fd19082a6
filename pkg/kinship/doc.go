// Package kinship derives human-readable relationship labels ("Mother",
// "Cousin", "Sister-in-law") from the four stored edge lists of a roster.
//
// # Rules
//
// Relationships are classified by an ordered rule table; the first matching
// rule wins. Every rule starts at the reference member (relativeTo) and
// follows a fixed path of edge lists, looking for the person:
//
//	Parent          relativeTo.parents
//	Child           relativeTo.children
//	Spouse          relativeTo.spouses
//	Sibling         relativeTo.siblings
//	Grandparent     relativeTo.parents[*].parents
//	Grandchild      relativeTo.children[*].children
//	Aunt/Uncle      relativeTo.parents[*].siblings
//	Nephew/Niece    relativeTo.siblings[*].children
//	Cousin          relativeTo.parents[*].siblings[*].children
//	Parent-in-law   relativeTo.spouses[*].parents
//	Sibling-in-law  relativeTo.spouses[*].siblings or relativeTo.siblings[*].spouses
//
// Anything else is "Family Member". Rules read edges in one direction only,
// so on a roster with asymmetric edges a relation may be found from one side
// and not the other. Paths are bounded, so resolution terminates on any
// finite roster, cyclic or not.
//
// # Labels
//
// The label is chosen by the person's gender: masculine, feminine, or a
// neutral term for "other" and unknown values.
package kinship
