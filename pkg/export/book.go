// Package export writes a family tree as a shareable document.
//
// A [Book] groups members into chapters, one per generation with the oldest
// first, using the generations of a computed [layout.Result]. [HTML] and
// [Markdown] render a book:
//
//	res := layout.Compute(roster.Members, layout.WithFocus(meID))
//	book := export.NewBook("The Smiths", roster.Members, res, meID)
//	err := export.HTML(w, book)
package export

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/layout"
)

// Book is the export model of one tree.
type Book struct {
	Title    string
	Focus    string // name of the focus member, if any
	Members  int
	Living   int
	Chapters []Chapter
}

// Chapter holds the members of one generation.
type Chapter struct {
	Title      string
	Generation int
	Entries    []Entry
}

// Entry is one member's page.
type Entry struct {
	ID        string
	Name      string
	Gender    family.Gender
	Lifespan  string
	Deceased  bool
	Relation  string // kinship label relative to the focus member
	Photo     string
	Biography string
	Parents   []string
	Spouses   []string
	Children  []string
	Siblings  []string
}

// NewBook builds a book from members and their layout. When focusID names
// a member, each entry carries its relation to that member. Members the
// layout does not cover are collected in a final chapter.
func NewBook(title string, members []family.Member, res layout.Result, focusID string) Book {
	book := Book{Title: title, Members: len(members)}
	names := make(map[string]string, len(members))
	for i := range members {
		names[members[i].ID] = members[i].Name
		if !members[i].IsDeceased() {
			book.Living++
		}
	}

	resolver := kinship.NewResolver(members)
	var focus *family.Member
	for i := range members {
		if members[i].ID == focusID {
			focus = &members[i]
			book.Focus = focus.Name
			break
		}
	}

	gen := res.GenerationOf()
	byGen := make(map[int][]Entry)
	var unplaced []Entry
	for i := range members {
		m := &members[i]
		e := newEntry(m, names)
		if focus != nil {
			e.Relation = resolver.Relate(m, focus).Label
		}
		if g, ok := gen[m.ID]; ok {
			byGen[g] = append(byGen[g], e)
		} else {
			unplaced = append(unplaced, e)
		}
	}

	gens := make([]int, 0, len(byGen))
	for g := range byGen {
		gens = append(gens, g)
	}
	slices.Sort(gens)
	slices.Reverse(gens)

	years := birthYears(members)
	for i, g := range gens {
		entries := byGen[g]
		sortEntries(entries, years)
		book.Chapters = append(book.Chapters, Chapter{
			Title:      chapterTitle(i+1, g, focus != nil && res.Seed == focus.ID),
			Generation: g,
			Entries:    entries,
		})
	}
	if len(unplaced) > 0 {
		sortEntries(unplaced, years)
		book.Chapters = append(book.Chapters, Chapter{Title: "Other relatives", Entries: unplaced})
	}
	return book
}

func newEntry(m *family.Member, names map[string]string) Entry {
	e := Entry{
		ID:        m.ID,
		Name:      m.Name,
		Gender:    m.Gender.Normalize(),
		Lifespan:  m.Lifespan(),
		Deceased:  m.IsDeceased(),
		Photo:     m.Photo,
		Biography: strings.TrimSpace(m.Biography),
	}
	resolve := func(ids []string) []string {
		var out []string
		for _, id := range ids {
			if n, ok := names[id]; ok {
				out = append(out, n)
			}
		}
		return out
	}
	e.Parents = resolve(m.Relationships.Parents)
	e.Spouses = resolve(m.Relationships.Spouses)
	e.Children = resolve(m.Relationships.Children)
	e.Siblings = resolve(m.Relationships.Siblings)
	return e
}

func birthYears(members []family.Member) map[string]int {
	out := make(map[string]int, len(members))
	for i := range members {
		if y, ok := members[i].BirthYear(); ok {
			out[members[i].ID] = y
		}
	}
	return out
}

// sortEntries orders by birth year, unknown years last, then by name.
func sortEntries(entries []Entry, years map[string]int) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		ya, oka := years[a.ID]
		yb, okb := years[b.ID]
		switch {
		case oka && !okb:
			return -1
		case !oka && okb:
			return 1
		case oka && okb && ya != yb:
			return cmp.Compare(ya, yb)
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}

// chapterTitle names a chapter; when generation 0 is the focus member the
// title also says how the generation relates to them.
func chapterTitle(n, gen int, focused bool) string {
	title := "Generation " + strconv.Itoa(n)
	if !focused {
		return title
	}
	switch {
	case gen == 0:
		return title + ": our generation"
	case gen == 1:
		return title + ": parents"
	case gen == 2:
		return title + ": grandparents"
	case gen > 2:
		return title + ": " + strings.Repeat("great-", gen-2) + "grandparents"
	case gen == -1:
		return title + ": children"
	case gen == -2:
		return title + ": grandchildren"
	default:
		return title + ": " + strings.Repeat("great-", -gen-2) + "grandchildren"
	}
}
