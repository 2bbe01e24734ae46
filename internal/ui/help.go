package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

var helpTitles = []string{"Panes", "Gallery & Photo", "Activity Log", "General"}

// renderHelp renders the help overlay from the full key map.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	groups := m.keys.FullHelp()
	sections := make([]helpSection, 0, len(groups))
	for i, group := range groups {
		sec := helpSection{title: helpTitles[min(i, len(helpTitles)-1)]}
		for _, b := range group {
			sec.items = append(sec.items, bindingItem(b))
		}
		sections = append(sections, sec)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 34)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// shortHelpLine renders the short key map as a single hint line.
func (m Model) shortHelpLine() string {
	styles := m.theme.Styles()
	parts := make([]string, 0, 2)
	for _, b := range m.keys.ShortHelp() {
		item := bindingItem(b)
		parts = append(parts, styles.AccentText.Render(item.key)+" "+styles.FaintText.Render(item.desc))
	}
	return strings.Join(parts, styles.FaintText.Render(" • "))
}

func bindingItem(b key.Binding) helpItem {
	h := b.Help()
	return helpItem{key: h.Key, desc: h.Desc}
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
