package pipeline

import (
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/layout"
)

// GenerateLayout computes the layout of a roster. It is pure and never
// fails on roster content; a nil roster lays out as empty.
func GenerateLayout(r *family.Roster, opts Options) layout.Result {
	var members []family.Member
	if r != nil {
		members = r.Members
	}
	return layout.ComputeWithOptions(members, opts.LayoutOptions())
}
