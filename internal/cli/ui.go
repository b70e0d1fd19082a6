package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/legacylink/legacylink/pkg/family"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorPink   = lipgloss.Color("175") // female
	colorBlue   = lipgloss.Color("75")  // male
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printLine(s string) { fmt.Fprintln(stdout, s) }

func printSuccess(format string, args ...any) {
	printLine(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printLine(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printLine(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printLine(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	printLine("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	printLine("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	printLine(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints member and connection counts on one line, with the
// cache status of the result.
func printStats(members, connections, generations int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d members", members),
		fmt.Sprintf("%d connections", connections),
		fmt.Sprintf("%d generations", generations),
	}
	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}

	rendered := make([]string, len(parts))
	for i, p := range parts {
		rendered[i] = StyleDim.Render(p)
	}
	printLine("  " + strings.Join(rendered, StyleDim.Render(" · ")) + StyleDim.Render(" · ") + status)
}

func printNextStep(description, cmd string) {
	printLine(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }

// =============================================================================
// Members
// =============================================================================

// genderStyle colors a member name by gender.
func genderStyle(g family.Gender) lipgloss.Style {
	switch g.Normalize() {
	case family.GenderFemale:
		return lipgloss.NewStyle().Foreground(colorPink)
	case family.GenderMale:
		return lipgloss.NewStyle().Foreground(colorBlue)
	}
	return StyleValue
}

// printTable renders rows under headers with a rounded border.
func printTable(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	printLine(t.Render())
}

// printMember prints a member profile with names for its relatives.
func printMember(m *family.Member, roster *family.Roster) {
	printLine(StyleTitle.Render(m.Name) + " " + StyleDim.Render("("+m.ID+")"))
	printKeyValue("Gender", string(m.Gender.Normalize()))
	if life := m.Lifespan(); life != "" {
		printKeyValue("Life", life)
	}
	for _, rel := range family.Relations {
		ids := m.Relationships.List(rel)
		if len(ids) == 0 {
			continue
		}
		printKeyValue(relationHeading(rel), strings.Join(memberNames(roster, ids), ", "))
	}
	if m.Photo != "" {
		printKeyValue("Photo", m.Photo)
	}
	for _, platform := range slices.Sorted(maps.Keys(m.SocialLinks)) {
		printKeyValue(platform, m.SocialLinks[platform])
	}
	if m.Biography != "" {
		printNewline()
		printLine(m.Biography)
	}
	if m.Notes != "" {
		printNewline()
		printLine(StyleDim.Render(m.Notes))
	}
}

func relationHeading(rel family.Relation) string {
	switch rel {
	case family.RelationParent:
		return "Parents"
	case family.RelationChild:
		return "Children"
	case family.RelationSibling:
		return "Siblings"
	case family.RelationSpouse:
		return "Spouses"
	}
	return string(rel)
}

// memberNames maps ids to names, keeping unknown ids as they are.
func memberNames(roster *family.Roster, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id
		if m, err := roster.Get(id); err == nil && m.Name != "" {
			out[i] = m.Name
		}
	}
	return out
}
