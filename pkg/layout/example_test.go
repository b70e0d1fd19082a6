package layout_test

import (
	"fmt"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

func ExampleCompute() {
	roster := []family.Member{
		{ID: "alice", Name: "Alice", Gender: family.GenderFemale},
		{ID: "bob", Name: "Bob", Gender: family.GenderMale,
			Relationships: family.Relationships{Parents: []string{"alice"}}},
	}

	res := layout.Compute(roster)
	for _, n := range res.Nodes {
		fmt.Printf("%s gen=%d x=%.0f y=%.0f\n", n.Name, n.Generation, n.X, n.Y)
	}
	for _, c := range res.Connections {
		fmt.Printf("%s -> %s (%s)\n", c.From, c.To, c.Type)
	}
	// Output:
	// Alice gen=0 x=20 y=20
	// Bob gen=-1 x=20 y=170
	// alice -> bob (parent)
}

func ExampleAssignGenerations() {
	roster := []family.Member{
		{ID: "grandma", Relationships: family.Relationships{Children: []string{"mom"}}},
		{ID: "mom", Relationships: family.Relationships{Children: []string{"me"}}},
		{ID: "me"},
	}
	gen := layout.AssignGenerations(roster, "me")
	fmt.Println(gen["grandma"], gen["mom"], gen["me"])
	// Output: 2 1 0
}
