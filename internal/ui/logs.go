package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/photocraft/internal/logtail"
)

const logRefreshInterval = time.Second

// logState holds the activity log view state.
type logState struct {
	lines       []string
	follow      bool
	sessionOnly bool
	err         error
	lastRefresh time.Time

	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int
	searchMatchIdx int
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Search log..."
	ti.CharLimit = 100
	return logState{follow: true, searchInput: ti}
}

// logLinesMsg carries the tail of the log file.
type logLinesMsg struct {
	lines []string
	err   error
}

// refreshLogs reads the log file tail, at most once per logRefreshInterval.
func (m *Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	if time.Since(m.logState.lastRefresh) < logRefreshInterval {
		return nil
	}
	m.logState.lastRefresh = time.Now()

	path := m.logPath
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err != nil {
		return
	}
	m.logState.lines = msg.lines
	m.findSearchMatches()
	m.updateLogViewport()
}

// visibleLogLines applies the session filter.
func (m Model) visibleLogLines() []string {
	if !m.logState.sessionOnly {
		return m.logState.lines
	}
	return logtail.FilterSession(m.logState.lines, m.snapshot.Session.SessionID)
}

// resizeLogViewport fits the viewport inside the log box.
func (m *Model) resizeLogViewport() {
	// header rows, status line, box borders and title
	w, h := max(m.width-4, 1), max(m.height-headerRows-4, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	} else {
		m.logViewport.Width = w
		m.logViewport.Height = h
	}
	m.updateLogViewport()
}

func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
	m.logViewport.SetContent(m.renderLogContent())
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log box and its status line.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()

	title := "Activity Log"
	if m.logState.sessionOnly {
		title = "Activity Log (session " + shortID(m.snapshot.Session.SessionID) + ")"
	}
	header := styles.AccentText.Bold(true).Render(title)
	box := m.paneStyle(true, m.width, m.height-headerRows-1).
		Width(max(m.width-2, 0)).
		Render(header + "\n" + m.logViewport.View())

	return box + "\n" + m.renderLogStatus(styles, bg)
}

func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logState.searchActive {
		return bg.Render("/", styles.AccentText) + m.logState.searchInput.View()
	}
	if m.logState.searchRegex != nil {
		if len(m.logState.searchMatches) == 0 {
			return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
		}
		return bg.Render("/"+m.logState.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logState.searchMatchIdx+1, len(m.logState.searchMatches)), styles.WarningText) +
			bg.Render(" - n next, N previous, esc clear", styles.FaintText)
	}
	if m.logPath == "" {
		return bg.Render("Logging to stderr; no log file to show", styles.MutedText)
	}
	if m.logState.err != nil {
		return bg.Render("Log unavailable: "+m.logState.err.Error(), styles.DangerText)
	}

	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d lines auto-tail %s", len(m.visibleLogLines()), autoTail), styles.FaintText),
		bg.Render(truncateMiddle(m.logPath, 60), styles.AccentText),
	}
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	lines := m.visibleLogLines()
	if len(lines) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	active := -1
	matches := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matches[idx] = true
	}
	if m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		active = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	var b strings.Builder
	for i, line := range lines {
		var content string
		switch {
		case i == active:
			hl := lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.Warning)).
				Foreground(lipgloss.Color(m.theme.Background))
			content = hl.Render(fmt.Sprintf("%4d │ %s", i+1, line))
		case matches[i]:
			content = bg.Render(fmt.Sprintf("%4d │ ", i+1), styles.AccentText) + bg.Render(line, styles.AccentText)
		default:
			content = bg.Render(fmt.Sprintf("%4d │ ", i+1), styles.FaintText) + m.colorizeLogLine(line, styles, bg)
		}
		b.WriteString(bg.FillLine(lipgloss.NewStyle().MaxWidth(width).Render(content), width))
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// colorizeLogLine renders a slog text record as "time LEVEL message attrs".
func (m *Model) colorizeLogLine(line string, styles Styles, bg BgStyle) string {
	e := logtail.Parse(line)
	if e.Level == "" {
		return bg.Render(e.Message, styles.Text)
	}

	var b strings.Builder
	if e.Time != "" {
		ts := e.Time
		if t, err := time.Parse(time.RFC3339Nano, e.Time); err == nil {
			ts = t.Local().Format("15:04:05")
		}
		b.WriteString(bg.Render(ts, styles.FaintText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(fmt.Sprintf("%-5s", e.Level), levelStyle(e.Level, styles).Bold(true)))
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(e.Message, styles.Text))
	if e.Attrs != "" {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(e.Attrs, styles.MutedText))
	}
	return b.String()
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		m.currentView = ViewMain
		return m, nil

	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.SessionFilter):
		m.logState.sessionOnly = !m.logState.sessionOnly
		m.findSearchMatches()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		cmd := m.logState.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false
		return m, nil
	}
	return m, nil
}

// handleLogSearchInput edits the search query until enter or esc.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		query := m.logState.searchInput.Value()
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		if query == "" {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
		}
		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.logState.searchMatchIdx = 0
		m.findSearchMatches()
		m.scrollToSearchMatch()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
}

func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}
	for i, line := range m.visibleLogLines() {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
}

func (m *Model) stepSearchMatch(delta int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = (m.logState.searchMatchIdx + delta + n) % n
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch centers the current match and stops following.
func (m *Model) scrollToSearchMatch() {
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}
	m.logState.follow = false
	target := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}
