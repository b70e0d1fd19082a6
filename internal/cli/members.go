package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// memberFlags holds the profile flags shared by member add and edit.
type memberFlags struct {
	id, name, gender string
	born, died       string
	photo, biography string
	voiceNote, notes string
	social           []string
	relations        map[family.Relation]*[]string
}

func newMemberFlags() *memberFlags {
	return &memberFlags{relations: map[family.Relation]*[]string{
		family.RelationParent:  new([]string),
		family.RelationChild:   new([]string),
		family.RelationSibling: new([]string),
		family.RelationSpouse:  new([]string),
	}}
}

func (f *memberFlags) register(cmd *cobra.Command, withEdges bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "", "full name")
	flags.StringVar(&f.gender, "gender", "", "male, female or other")
	flags.StringVar(&f.born, "born", "", "date of birth (YYYY, YYYY-MM or YYYY-MM-DD)")
	flags.StringVar(&f.died, "died", "", "date of death")
	flags.StringVar(&f.photo, "photo", "", "photo URL or path")
	flags.StringVar(&f.biography, "bio", "", "biography text")
	flags.StringVar(&f.voiceNote, "voice-note", "", "voice note URL or path")
	flags.StringVar(&f.notes, "notes", "", "free-form notes")
	flags.StringArrayVar(&f.social, "social", nil, "social link as platform=url (repeatable)")
	if !withEdges {
		return
	}
	flags.StringVar(&f.id, "id", "", "member id (generated when empty)")
	for _, rel := range family.Relations {
		flags.StringArrayVar(f.relations[rel], string(rel), nil, fmt.Sprintf("existing member who is a %s (repeatable)", rel))
	}
}

// apply copies the flags the user set onto m.
func (f *memberFlags) apply(cmd *cobra.Command, m *family.Member) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		m.Name = f.name
	}
	if changed("gender") {
		m.Gender = family.ParseGender(f.gender)
	}
	if changed("born") {
		m.DateOfBirth = f.born
	}
	if changed("died") {
		m.DateOfDeath = f.died
	}
	if changed("photo") {
		m.Photo = f.photo
	}
	if changed("bio") {
		m.Biography = f.biography
	}
	if changed("voice-note") {
		m.VoiceNote = f.voiceNote
	}
	if changed("notes") {
		m.Notes = f.notes
	}
	if changed("social") {
		links, err := parseSocial(f.social)
		if err != nil {
			return err
		}
		m.SocialLinks = links
	}
	return nil
}

var profileFlags = []string{"name", "gender", "born", "died", "photo", "bio", "voice-note", "notes", "social"}

func (f *memberFlags) changed(cmd *cobra.Command) bool {
	for _, name := range profileFlags {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// parseSocial turns platform=url pairs into a map.
func parseSocial(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		platform, link, ok := strings.Cut(p, "=")
		platform = strings.ToLower(strings.TrimSpace(platform))
		if !ok || platform == "" || strings.TrimSpace(link) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "social link %q must be platform=url", p)
		}
		out[platform] = strings.TrimSpace(link)
	}
	return out, nil
}

func (c *CLI) memberCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "member",
		Aliases: []string{"members", "m"},
		Short:   "Add, list, show, edit and remove family members",
	}
	cmd.AddCommand(
		c.memberAddCommand(),
		c.memberListCommand(),
		c.memberShowCommand(),
		c.memberEditCommand(),
		c.memberRemoveCommand(),
	)
	return cmd
}

func (c *CLI) memberAddCommand() *cobra.Command {
	f := newMemberFlags()
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a member to the tree",
		Long: `Add a member to the tree. Relatives given with --parent, --child,
--sibling and --spouse must already exist; both sides of each link are
recorded.`,
		Example: `  legacylink member add "Rose Hale" --gender female --born 1931
  legacylink member add "Tom Hale" --born 1960 --parent "Rose Hale"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var added family.Member
			_, err := c.mutateTree(cmd, func(r *family.Roster) error {
				m := family.Member{ID: f.id, Name: args[0]}
				if err := f.apply(cmd, &m); err != nil {
					return err
				}
				edges := make(map[family.Relation][]string, len(f.relations))
				for rel, refs := range f.relations {
					for _, ref := range *refs {
						other, err := resolveMember(r, ref)
						if err != nil {
							return err
						}
						edges[rel] = append(edges[rel], other.ID)
					}
				}
				m.Relationships = family.Relationships{
					Parents:  edges[family.RelationParent],
					Children: edges[family.RelationChild],
					Siblings: edges[family.RelationSibling],
					Spouses:  edges[family.RelationSpouse],
				}
				var err error
				added, err = r.Add(m)
				return err
			})
			if err != nil {
				return err
			}
			printSuccess("Added %s %s", genderStyle(added.Gender).Render(added.Name), StyleDim.Render("("+added.ID+")"))
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func (c *CLI) memberListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the members of the tree",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(roster.Members)
			}
			if roster.Len() == 0 {
				printInfo("Tree %s has no members", StyleHighlight.Render(c.tree))
				printNextStep("Add one with", appName+" member add NAME")
				return nil
			}
			rows := make([][]string, 0, roster.Len())
			for _, m := range roster.Members {
				rows = append(rows, []string{shortID(m.ID), m.Name, string(m.Gender), m.Lifespan(), fmt.Sprint(m.Relationships.Count())})
			}
			printTable([]string{"ID", "Name", "Gender", "Life", "Links"}, rows)
			printDetail("%d members in %s", roster.Len(), c.tree)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print members as JSON")
	return cmd
}

func (c *CLI) memberShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:               "show MEMBER",
		Short:             "Show a member's profile and relatives",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeMembers,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			m, err := resolveMember(roster, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(m)
			}
			printMember(m, roster)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the member as JSON")
	return cmd
}

func (c *CLI) memberEditCommand() *cobra.Command {
	f := newMemberFlags()
	cmd := &cobra.Command{
		Use:               "edit MEMBER",
		Short:             "Change a member's profile",
		Long:              "Change a member's profile. Only the flags given are updated; links are edited with link and unlink.",
		Example:           `  legacylink member edit "Rose Hale" --died 2019-03-02`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeMembers,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !f.changed(cmd) {
				return errors.New(errors.ErrCodeInvalidInput, "nothing to change; pass at least one flag")
			}
			var updated family.Member
			_, err := c.mutateTree(cmd, func(r *family.Roster) error {
				cur, err := resolveMember(r, args[0])
				if err != nil {
					return err
				}
				m := cur.Clone()
				if err := f.apply(cmd, &m); err != nil {
					return err
				}
				updated, err = r.Update(m)
				return err
			})
			if err != nil {
				return err
			}
			printSuccess("Updated %s", genderStyle(updated.Gender).Render(updated.Name))
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (c *CLI) memberRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "remove MEMBER",
		Aliases:           []string{"rm"},
		Short:             "Remove a member and every link to them",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeMembers,
		RunE: func(cmd *cobra.Command, args []string) error {
			var removed family.Member
			_, err := c.mutateTree(cmd, func(r *family.Roster) error {
				m, err := resolveMember(r, args[0])
				if err != nil {
					return err
				}
				removed, err = r.Remove(m.ID)
				return err
			})
			if err != nil {
				return err
			}
			printSuccess("Removed %s", removed.Name)
			if n := removed.Relationships.Count(); n > 0 {
				printDetail("%d links dropped", n)
			}
			return nil
		},
	}
}

func (c *CLI) linkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link MEMBER RELATION OTHER",
		Short: "Record that OTHER is MEMBER's parent, child, sibling or spouse",
		Long: `Record that OTHER is MEMBER's parent, child, sibling or spouse. The
inverse link is recorded on OTHER. Links that would make a member their own
ancestor are rejected.`,
		Example: `  legacylink link "Tom Hale" parent "Rose Hale"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeLink(cmd, args, (*family.Roster).Link, "Linked")
		},
	}
}

func (c *CLI) unlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "unlink MEMBER RELATION OTHER",
		Short:   "Remove a link and its inverse",
		Example: `  legacylink unlink "Tom Hale" spouse "Ann Hale"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeLink(cmd, args, (*family.Roster).Unlink, "Unlinked")
		},
	}
}

func (c *CLI) changeLink(cmd *cobra.Command, args []string, op func(*family.Roster, string, string, family.Relation) error, verb string) error {
	rel, err := family.ParseRelation(args[1])
	if err != nil {
		return err
	}
	var member, other string
	_, err = c.mutateTree(cmd, func(r *family.Roster) error {
		m, err := resolveMember(r, args[0])
		if err != nil {
			return err
		}
		o, err := resolveMember(r, args[2])
		if err != nil {
			return err
		}
		member, other = m.Name, o.Name
		return op(r, m.ID, o.ID, rel)
	})
	if err != nil {
		return err
	}
	printSuccess("%s %s %s %s", verb, StyleHighlight.Render(other), StyleDim.Render("as "+string(rel)+" of"), StyleHighlight.Render(member))
	return nil
}

// shortID trims uuids to their first block for tables.
func shortID(id string) string {
	if len(id) == 36 && id[8] == '-' {
		return id[:8]
	}
	return id
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
