package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/pipeline"
	"github.com/legacylink/legacylink/pkg/search"
)

// layoutFlags are the layout options shared by layout, render and export.
type layoutFlags struct {
	focus    string
	order    string
	siblings bool
	refresh  bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.focus, "focus", "", "member the generations are counted from")
	flags.StringVar(&f.order, "order", "", "desc draws the oldest generation first, asc the youngest")
	flags.BoolVar(&f.siblings, "siblings", false, "draw sibling connections")
	flags.BoolVar(&f.refresh, "refresh", false, "recompute instead of reading the cache")
}

// optionsFrom resolves the focus against roster and overlays the flags on the
// configured defaults.
func (c *CLI) optionsFrom(cmd *cobra.Command, f *layoutFlags, roster *family.Roster) (pipeline.Options, error) {
	opts := c.layoutOptions()
	if f.focus != "" {
		m, err := resolveMember(roster, f.focus)
		if err != nil {
			return opts, err
		}
		opts.Focus = m.ID
	}
	if f.order != "" {
		opts.Order = f.order
	}
	if cmd.Flags().Changed("siblings") {
		opts.Siblings = f.siblings
	}
	opts.Refresh = f.refresh
	return opts, opts.ValidateForLayout()
}

func (c *CLI) relationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relation PERSON RELATIVE",
		Short: "Name what PERSON is to RELATIVE",
		Example: `  legacylink relation "Rose Hale" "Tom Hale"
  Rose Hale is Tom Hale's Mother`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: c.completeMembers,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			person, err := resolveMember(roster, args[0])
			if err != nil {
				return err
			}
			relative, err := resolveMember(roster, args[1])
			if err != nil {
				return err
			}
			rel := kinship.NewResolver(roster.Members).Relate(person, relative)
			printLine(fmt.Sprintf("%s is %s's %s",
				genderStyle(person.Gender).Render(person.Name),
				genderStyle(relative.Gender).Render(relative.Name),
				StyleTitle.Render(rel.Label)))
			return nil
		},
	}
}

func (c *CLI) relationsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:               "relations PERSON",
		Short:             "List how every other member relates to PERSON",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeMembers,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			person, err := resolveMember(roster, args[0])
			if err != nil {
				return err
			}
			pairs, err := r.Relations(cmd.Context(), roster, person.ID)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(pairs)
			}
			rows := make([][]string, 0, len(pairs))
			for _, p := range pairs {
				rows = append(rows, []string{p.Member.Name, p.Relationship.Label})
			}
			printLine(StyleTitle.Render("Relatives of " + person.Name))
			printTable([]string{"Member", "Is their"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print relationships as JSON")
	return cmd
}

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		f      layoutFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Place every member on a generation row",
		Long: `Assign each member a generation relative to the focus (or the first
member without parents) and print the rows in drawing order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			opts, err := c.optionsFrom(cmd, &f, roster)
			if err != nil {
				return err
			}
			p := newProgress(c.Logger)
			res, cached, err := r.LayoutWithCacheInfo(cmd.Context(), roster, opts)
			if err != nil {
				return err
			}
			p.done(fmt.Sprintf("laid out %d members", len(res.Nodes)))
			if asJSON {
				return printJSON(res)
			}
			printLayout(res, roster)
			printStats(len(res.Nodes), len(res.Connections), len(res.Generations), cached)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full layout as JSON")
	return cmd
}

// printLayout prints one table row per generation.
func printLayout(res layout.Result, roster *family.Roster) {
	if len(res.Nodes) == 0 {
		printInfo("Nothing to lay out")
		return
	}
	seed := res.Seed
	if m, err := roster.Get(seed); err == nil {
		seed = m.Name
	}
	printLine(StyleDim.Render("Generations counted from ") + StyleHighlight.Render(seed))

	rows := res.Rows()
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		names := make([]string, len(row))
		for i, n := range row {
			names[i] = genderStyle(n.Gender).Render(n.Name)
		}
		out = append(out, []string{strconv.Itoa(row[0].Generation), strings.Join(names, ", ")})
	}
	printTable([]string{"Gen", "Members"}, out)
}

func (c *CLI) searchCommand() *cobra.Command {
	var (
		gender             string
		living, deceased   bool
		generation         int
		bornAfter, bornBef int
		limit              int
		focus              string
		asJSON             bool
	)
	cmd := &cobra.Command{
		Use:   "search [TEXT]",
		Short: "Find members by name and filters",
		Example: `  legacylink search rose
  legacylink search --gender female --born-before 1950 --deceased`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			q := search.Query{BornAfter: bornAfter, BornBefore: bornBef, Limit: limit}
			if len(args) == 1 {
				q.Text = args[0]
			}
			if gender != "" {
				q.Gender = family.ParseGender(gender)
			}
			switch {
			case living && deceased:
				return fmt.Errorf("--living and --deceased are mutually exclusive")
			case living:
				q.Living = ptr(true)
			case deceased:
				q.Living = ptr(false)
			}
			if cmd.Flags().Changed("generation") {
				q.Generation = ptr(generation)
			}
			if focus != "" {
				m, err := resolveMember(roster, focus)
				if err != nil {
					return err
				}
				q.Focus = m.ID
			}

			matches := search.Search(roster.Members, q)
			if asJSON {
				return printJSON(matches)
			}
			if len(matches) == 0 {
				printInfo("No members match")
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for _, m := range matches {
				rows = append(rows, []string{shortID(m.Member.ID), highlightMatch(m), m.Member.Lifespan()})
			}
			printTable([]string{"ID", "Name", "Life"}, rows)
			printDetail("%d matches", len(matches))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&gender, "gender", "", "male, female or other")
	flags.BoolVar(&living, "living", false, "only living members")
	flags.BoolVar(&deceased, "deceased", false, "only deceased members")
	flags.IntVar(&generation, "generation", 0, "only members on this generation")
	flags.StringVar(&focus, "focus", "", "member generations are counted from")
	flags.IntVar(&bornAfter, "born-after", 0, "earliest birth year")
	flags.IntVar(&bornBef, "born-before", 0, "latest birth year")
	flags.IntVar(&limit, "limit", 0, "maximum number of matches")
	flags.BoolVar(&asJSON, "json", false, "print matches as JSON")
	return cmd
}

// highlightMatch renders the fuzzy-matched characters of a name.
func highlightMatch(m search.Match) string {
	name := m.Member.Name
	if len(m.MatchedIndexes) == 0 {
		return name
	}
	hit := make(map[int]bool, len(m.MatchedIndexes))
	for _, i := range m.MatchedIndexes {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range name {
		if hit[i] {
			b.WriteString(StyleHighlight.Bold(true).Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *CLI) statsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count members, links and branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			st := roster.Stats()
			if asJSON {
				return printJSON(st)
			}
			printLine(StyleTitle.Render("Tree " + c.tree))
			printKeyValue("Members", strconv.Itoa(st.Members))
			printKeyValue("Living", strconv.Itoa(st.Living))
			printKeyValue("Deceased", strconv.Itoa(st.Deceased))
			printKeyValue("Parent links", strconv.Itoa(st.ParentLinks))
			printKeyValue("Couples", strconv.Itoa(st.SpousePairs))
			printKeyValue("Sibling pairs", strconv.Itoa(st.SiblingPairs))
			printKeyValue("Branches", strconv.Itoa(st.Components))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	return cmd
}

func ptr[T any](v T) *T { return &v }
