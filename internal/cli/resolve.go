package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/config"
	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
)

// resolveMember finds a member by exact id, unique id prefix, or
// case-insensitive name, in that order.
func resolveMember(roster *family.Roster, ref string) (*family.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "member reference is empty")
	}
	if m, err := roster.Get(ref); err == nil {
		return m, nil
	}

	var byPrefix, byName []int
	for i := range roster.Members {
		m := &roster.Members[i]
		if strings.HasPrefix(m.ID, ref) {
			byPrefix = append(byPrefix, i)
		}
		if strings.EqualFold(m.Name, ref) {
			byName = append(byName, i)
		}
	}
	for _, hits := range [][]int{byPrefix, byName} {
		switch len(hits) {
		case 0:
			continue
		case 1:
			return &roster.Members[hits[0]], nil
		default:
			ids := make([]string, len(hits))
			for j, i := range hits {
				ids[j] = roster.Members[i].ID
			}
			return nil, errors.New(errors.ErrCodeInvalidInput,
				"%q matches %d members (%s); use an id", ref, len(hits), strings.Join(ids, ", "))
		}
	}
	return nil, errors.New(errors.ErrCodeMemberNotFound, "no member matches %q", ref)
}

// completeMembers is a ValidArgsFunction offering member ids, described
// by name.
func (c *CLI) completeMembers(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(c.configPath)
	if err != nil || c.checkTree() != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	c.cfg = cfg
	_, roster, err := c.loadTree(cmd)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer c.Close()

	var out []string
	for _, m := range roster.Members {
		if slices.Contains(args, m.ID) || !strings.HasPrefix(m.ID, toComplete) {
			continue
		}
		out = append(out, m.ID+"\t"+m.Name)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
