// Package family defines the LegacyLink data model: members, their four
// relationship edge lists, and the roster that holds one family tree.
//
// # Edges
//
// A member stores ids in four lists: Parents, Children, Siblings and
// Spouses. These are the only edges of the family graph. Grandparents,
// cousins, in-laws and the like are derived by the kinship package and never
// stored.
//
// The edge lists are expected to be symmetric (if A lists B as a parent, B
// lists A as a child) and parent edges must not form cycles. The kinship and
// layout engines tolerate violations; [Roster] enforces the invariants on
// every mutation:
//
//	r := family.NewRoster()
//	alice, _ := r.Add(family.Member{Name: "Alice", Gender: family.GenderFemale})
//	bob, _ := r.Add(family.Member{Name: "Bob", Gender: family.GenderMale})
//	_ = r.Link(bob.ID, alice.ID, family.RelationParent) // Alice is Bob's parent
//
// # Integrity
//
// Rosters loaded from files or foreign stores bypass the mutation boundary.
// [Roster.Validate] reports every violated invariant; [Roster.Symmetrize]
// and [Roster.BreakCycles] repair them.
//
// # Dates
//
// Dates are optional partial ISO strings (YYYY-MM-DD, YYYY-MM or YYYY).
// A missing date of birth means unknown. A recorded date of death is the
// only signal that a member is deceased.
package family
