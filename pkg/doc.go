// Package pkg holds the LegacyLink libraries: family trees, kinship labels,
// generational layout and everything needed to store and draw them.
//
// # Overview
//
// A tree is a [family.Roster]: an ordered list of members, each carrying
// parent, child, sibling and spouse lists. The libraries build on it in
// layers:
//
//	[store] (memory, file, sqlite, mongo, redis)
//	         ↓
//	    [family] roster edits, validation, repair
//	         ↓
//	    [kinship] "Grandmother", "Cousin", ...   [layout] generation rows
//	         ↓                                         ↓
//	    [search], [biography]              [render/svg], [render/nodelink], [export]
//
// [pipeline] ties load, layout and render together behind a [cache] and is
// shared by the CLI and the HTTP API.
//
// # Quick Start
//
// Name a relationship and lay a small tree out:
//
//	r := family.NewRoster()
//	gran, _ := r.Add(family.Member{Name: "Rose", Gender: family.GenderFemale})
//	mom, _ := r.Add(family.Member{Name: "Ann", Gender: family.GenderFemale,
//	    Relationships: family.Relationships{Parents: []string{gran.ID}}})
//
//	rel, _ := kinship.NewResolver(r.Members).Resolve(gran.ID, mom.ID)
//	fmt.Println(rel.Label) // Mother
//
//	res := layout.Compute(r.Members, layout.WithFocus(mom.ID))
//	image := svg.Render(res, r.Members)
//
// # Main Packages
//
// ## Domain
//
// [family] - Members, relationship lists and the [family.Roster] operations
// that keep links two-sided and parent chains acyclic.
//
// [kinship] - First-match rules from graph paths to gendered labels.
//
// [layout] - Breadth-first generation assignment and row coordinates.
//
// [search] - Fuzzy name search with gender, living, birth-year and
// generation filters.
//
// [biography] - Short biographies generated from a member's profile and
// relatives.
//
// ## Output
//
// [render/svg] draws the layout directly; [render/nodelink] hands it to
// Graphviz; [export] writes HTML and Markdown family books. [graph] is the
// on-disk roster and layout format (JSON, YAML, zstd).
//
// ## Infrastructure
//
// [pipeline], [store], [cache], [config], [session], [auth],
// [observability], [errors] and [buildinfo].
//
// [family]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/family
// [family.Roster]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/family#Roster
// [kinship]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/kinship
// [layout]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/layout
// [search]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/search
// [biography]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/biography
// [render/svg]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/render/svg
// [render/nodelink]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/render/nodelink
// [export]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/export
// [graph]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/graph
// [pipeline]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/pipeline
// [store]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/store
// [cache]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/cache
// [config]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/config
// [session]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/session
// [auth]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/auth
// [observability]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/observability
// [errors]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/legacylink/legacylink/pkg/buildinfo
package pkg
