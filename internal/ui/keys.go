package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Logs       key.Binding

	// Gallery and preview
	Select       key.Binding
	Template     key.Binding
	ClearPreview key.Binding
	CopyDataURI  key.Binding
	StopSession  key.Binding
	Left         key.Binding
	Right        key.Binding

	// Log view
	Up            key.Binding
	Down          key.Binding
	Top           key.Binding
	Bottom        key.Binding
	ToggleFollow  key.Binding
	SessionFilter key.Binding
	HalfPageUp    key.Binding
	HalfPageDown  key.Binding
	Search        key.Binding
	NextMatch     key.Binding
	PrevMatch     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next pane"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous pane"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Activity log"),
		),

		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Select"),
		),
		Template: key.NewBinding(
			key.WithKeys("1", "2", "3", "4"),
			key.WithHelp("1-4", "Select template"),
		),
		ClearPreview: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear photo"),
		),
		CopyDataURI: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Copy data URI"),
		),
		StopSession: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Stop checking"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "Previous template"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "Next template"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		SessionFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Current session only"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Previous match"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Select, k.Escape},
		{k.Template, k.Left, k.Right, k.ClearPreview, k.CopyDataURI, k.StopSession},
		{k.Logs, k.Up, k.Down, k.Top, k.Bottom, k.ToggleFollow, k.SessionFilter, k.Search, k.NextMatch, k.PrevMatch},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
