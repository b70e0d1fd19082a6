// Package biography drafts short life summaries from a member's dates and
// close family.
package biography

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/legacylink/legacylink/pkg/errors"
	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/kinship"
)

// Generator writes a biography for a member of a roster.
type Generator interface {
	Generate(ctx context.Context, m family.Member, members []family.Member) (string, error)
}

// TemplateGenerator composes a biography from fixed sentence templates. It
// stands in for a language-model backed generator and needs no network.
type TemplateGenerator struct {
	// Now returns the reference time for ages. Defaults to time.Now.
	Now func() time.Time
}

var _ Generator = TemplateGenerator{}

// Generate implements [Generator].
func (g TemplateGenerator) Generate(ctx context.Context, m family.Member, members []family.Member) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(m.Name) == "" {
		return "", errors.New(errors.ErrCodeInvalidMember, "member %q has no name", m.ID)
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	var rel struct{ parents, spouses, children, grandchildren []string }
	for _, p := range kinship.AllRelationshipsOf(m, members) {
		switch p.Relationship.Kind {
		case kinship.KindParent:
			rel.parents = append(rel.parents, p.Member.Name)
		case kinship.KindSpouse:
			rel.spouses = append(rel.spouses, p.Member.Name)
		case kinship.KindChild:
			rel.children = append(rel.children, p.Member.Name)
		case kinship.KindGrandchild:
			rel.grandchildren = append(rel.grandchildren, p.Member.Name)
		}
	}

	subject, possessive := pronouns(m.Gender)
	deceased := m.IsDeceased()
	is, has := verbs(subject == "they", deceased)

	var s []string
	born, hasBorn := m.BirthYear()
	switch {
	case hasBorn && !deceased:
		if age, ok := m.Age(now()); ok {
			s = append(s, fmt.Sprintf("%s was born in %d and is %d years old.", m.Name, born, age))
		} else {
			s = append(s, fmt.Sprintf("%s was born in %d.", m.Name, born))
		}
	case hasBorn:
		s = append(s, fmt.Sprintf("%s was born in %d.", m.Name, born))
	default:
		s = append(s, fmt.Sprintf("%s's date of birth is not recorded.", m.Name))
	}

	if deceased {
		died, hasDied := m.DeathYear()
		age, hasAge := m.Age(now())
		switch {
		case hasDied && hasAge:
			s = append(s, fmt.Sprintf("%s passed away in %d at the age of %d.", title(subject), died, age))
		case hasDied:
			s = append(s, fmt.Sprintf("%s passed away in %d.", title(subject), died))
		default:
			_, perfect := verbs(subject == "they", false)
			s = append(s, fmt.Sprintf("%s %s passed away.", title(subject), perfect))
		}
	}

	if len(rel.parents) > 0 {
		s = append(s, fmt.Sprintf("%s %s the %s of %s.",
			title(subject), is, lower(kinship.Label(kinship.KindChild, m.Gender)), join(rel.parents)))
	}
	if len(rel.spouses) > 0 {
		s = append(s, fmt.Sprintf("%s %s married to %s.", title(subject), is, join(rel.spouses)))
	}
	if len(rel.children) > 0 {
		s = append(s, fmt.Sprintf("%s %s the %s of %s.",
			title(subject), is, lower(kinship.Label(kinship.KindParent, m.Gender)), join(rel.children)))
	}
	if n := len(rel.grandchildren); n > 0 {
		noun := "grandchildren"
		if n == 1 {
			noun = "grandchild"
		}
		s = append(s, fmt.Sprintf("%s %s %d %s.", title(subject), has, n, noun))
	}
	if m.Notes != "" {
		s = append(s, fmt.Sprintf("In %s own words: %q", possessive, strings.TrimSpace(m.Notes)))
	}
	return strings.Join(s, " "), nil
}

func pronouns(g family.Gender) (subject, possessive string) {
	switch g.Normalize() {
	case family.GenderMale:
		return "he", "his"
	case family.GenderFemale:
		return "she", "her"
	}
	return "they", "their"
}

func verbs(plural, past bool) (be, have string) {
	switch {
	case past && plural:
		return "were", "had"
	case past:
		return "was", "had"
	case plural:
		return "are", "have"
	}
	return "is", "has"
}

// join lists names as "A", "A and B", or "A, B and C".
func join(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func lower(s string) string { return strings.ToLower(s) }
