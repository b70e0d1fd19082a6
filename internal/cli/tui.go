package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/pkg/family"
	"github.com/legacylink/legacylink/pkg/kinship"
	"github.com/legacylink/legacylink/pkg/layout"
	"github.com/legacylink/legacylink/pkg/search"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	panelStyle        = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// BrowseModel - interactive member browser
// =============================================================================

// BrowseModel lists members with a fuzzy filter and shows the selected
// member's profile and how they relate to the focus member.
type BrowseModel struct {
	Roster   *family.Roster
	Focus    string
	Query    string
	Matches  []family.Member
	Cursor   int
	Offset   int
	Height   int
	Typing   bool
	resolver *kinship.Resolver
	gens     map[string]int
}

// NewBrowseModel creates a browser over roster focused on focus (which
// may be empty).
func NewBrowseModel(roster *family.Roster, focus string) BrowseModel {
	m := BrowseModel{
		Roster:   roster,
		Height:   15,
		resolver: kinship.NewResolver(roster.Members),
	}
	m.setFocus(focus)
	m.filter()
	return m
}

func (m *BrowseModel) setFocus(id string) {
	m.Focus = layout.Seed(m.Roster.Members, id)
	m.gens = layout.AssignGenerations(m.Roster.Members, m.Focus)
}

// filter recomputes Matches from Query, keeping the cursor in range.
func (m *BrowseModel) filter() {
	hits := search.Search(m.Roster.Members, search.Query{Text: m.Query})
	m.Matches = make([]family.Member, len(hits))
	for i, hit := range hits {
		m.Matches[i] = hit.Member
	}
	if m.Cursor >= len(m.Matches) {
		m.Cursor = max(len(m.Matches)-1, 0)
	}
	if m.Offset > m.Cursor {
		m.Offset = m.Cursor
	}
}

// Selected returns the member under the cursor, if any.
func (m BrowseModel) Selected() (family.Member, bool) {
	if len(m.Matches) == 0 {
		return family.Member{}, false
	}
	return m.Matches[m.Cursor], true
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Typing {
			return m.updateQuery(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Query != "" {
				m.Query = ""
				m.filter()
				return m, nil
			}
			return m, tea.Quit
		case "/":
			m.Typing = true
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter", "f":
			if sel, ok := m.Selected(); ok {
				m.setFocus(sel.ID)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m BrowseModel) updateQuery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter, tea.KeyEsc:
		m.Typing = false
	case tea.KeyBackspace:
		if r := []rune(m.Query); len(r) > 0 {
			m.Query = string(r[:len(r)-1])
			m.filter()
		}
	case tea.KeyRunes, tea.KeySpace:
		m.Query += string(msg.Runes)
		m.Cursor, m.Offset = 0, 0
		m.filter()
	}
	return m, nil
}

func (m *BrowseModel) move(delta int) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.Matches) {
		return
	}
	m.Cursor = next
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Family Members"))
	b.WriteString("\n")
	switch {
	case m.Typing:
		b.WriteString("/" + m.Query + listSelectedStyle.Render("█"))
	case m.Query != "":
		b.WriteString(listDimStyle.Render("filter: " + m.Query + "  (esc clears)"))
	default:
		b.WriteString(listDimStyle.Render("↑/↓ navigate  / search  ⏎ focus  q quit"))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.listView(), "  ", m.detailView()))
	b.WriteString("\n")
	if len(m.Matches) > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Matches))))
	}
	return b.String()
}

func (m BrowseModel) listView() string {
	if len(m.Matches) == 0 {
		return listDimStyle.Render("no members match")
	}
	end := min(m.Offset+m.Height, len(m.Matches))
	lines := make([]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		mem := m.Matches[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		marker := " "
		if mem.ID == m.Focus {
			marker = "*"
		}
		line := fmt.Sprintf("%s%s %-24s %s", cursor, marker, truncate(mem.Name, 24), listDimStyle.Render(mem.Lifespan()))
		if i == m.Cursor {
			line = listSelectedStyle.Render(line)
		} else {
			line = listNormalStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m BrowseModel) detailView() string {
	sel, ok := m.Selected()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(genderStyle(sel.Gender).Bold(true).Render(sel.Name))
	b.WriteString("\n")
	if life := sel.Lifespan(); life != "" {
		b.WriteString(listDimStyle.Render(life))
		b.WriteString("\n")
	}
	if gen, ok := m.gens[sel.ID]; ok {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("generation %d", gen)))
		b.WriteString("\n")
	}
	if focus, err := m.Roster.Get(m.Focus); err == nil && focus.ID != sel.ID {
		rel := m.resolver.Relate(&sel, focus)
		b.WriteString(fmt.Sprintf("\n%s to %s\n", StyleHighlight.Render(rel.Label), focus.Name))
	}
	b.WriteString("\n")
	for _, rel := range family.Relations {
		ids := sel.Relationships.List(rel)
		if len(ids) == 0 {
			continue
		}
		b.WriteString(listDimStyle.Render(relationHeading(rel)+": ") + strings.Join(memberNames(m.Roster, ids), ", "))
		b.WriteString("\n")
	}
	if sel.Biography != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(44).Render(sel.Biography))
		b.WriteString("\n")
	}
	if !sel.UpdatedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("updated " + formatRelativeTime(sel.UpdatedAt, time.Now())))
	}
	return panelStyle.Width(48).Render(strings.TrimRight(b.String(), "\n"))
}

func (c *CLI) browseCommand() *cobra.Command {
	var focus string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the tree interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, roster, err := c.loadTree(cmd)
			if err != nil {
				return err
			}
			if roster.Len() == 0 {
				printInfo("Tree %s has no members", StyleHighlight.Render(c.tree))
				return nil
			}
			if focus != "" {
				m, err := resolveMember(roster, focus)
				if err != nil {
					return err
				}
				focus = m.ID
			}
			_, err = tea.NewProgram(NewBrowseModel(roster, focus), tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "member to relate everyone else to")
	return cmd
}

// =============================================================================
// Helpers
// =============================================================================

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
