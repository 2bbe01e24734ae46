package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/photocraft/internal/fault"
	"github.com/five82/photocraft/internal/webhook"
)

// renderHeader renders the status bar: logo, webhook target and health.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("photocraft", styles.Logo), m.webhookHealth(styles, bg)}

	if m.mode != "" {
		parts = append(parts, bg.Render("mode", styles.FaintText)+bg.Space()+bg.Render(m.mode, styles.Text))
	}
	if m.endpoint != "" {
		limit := 40
		if m.width >= LayoutWideWidth {
			limit = 70
		}
		parts = append(parts, bg.Render(truncateMiddle(m.endpoint, limit), styles.MutedText))
	}
	if !m.lastUpdated.IsZero() && m.width >= LayoutWideWidth {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// webhookHealth summarizes recent deliveries.
func (m Model) webhookHealth(styles Styles, bg BgStyle) string {
	snap := m.snapshot
	switch {
	case snap.IsOffline():
		return bg.Render("● WEBHOOK DOWN "+classifyDeliveryError(snap.LastError), styles.DangerText)
	case snap.LastError != nil:
		return bg.Render("● "+classifyDeliveryError(snap.LastError), styles.WarningText)
	default:
		return bg.Render("● READY", styles.SuccessText)
	}
}

// classifyDeliveryError turns a delivery failure into a short label.
func classifyDeliveryError(err error) string {
	if err == nil {
		return "OK"
	}
	var statusErr *webhook.StatusError
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"):
		return "UNREACHABLE"
	case strings.Contains(msg, "no such host"):
		return "UNKNOWN HOST"
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	case fault.IsKind(err, fault.KindDelivery):
		return "UNDELIVERED"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.currentView == ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		scope := "Session"
		if m.logState.sessionOnly {
			scope = "All"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"f", scope},
			{"j/k", "Scroll"},
			{"esc", "Back"},
			{"?", "More"},
		}
	case m.focus == PaneUpload:
		commands = []cmd{
			{"j/k", "Browse"},
			{"enter", "Upload"},
			{"x", "Clear"},
			{"c", "Copy"},
			{"1-4", "Template"},
			{"Tab", "Focus"},
			{"L", "Log"},
			{"?", "More"},
		}
	case m.focus == PaneGallery:
		commands = []cmd{
			{"←/→", "Browse"},
			{"enter", "Select"},
			{"1-4", "Template"},
			{"s", "Stop"},
			{"Tab", "Focus"},
			{"L", "Log"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"s", "Stop"},
			{"1-4", "Template"},
			{"Tab", "Focus"},
			{"L", "Log"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderToast renders the transient message line.
func (m Model) renderToast() string {
	if !m.snapshot.HasToast {
		return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(m.shortHelpLine())
	}
	styles := m.theme.Styles()
	t := m.snapshot.Toast
	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).
		Render(styles.ToastStyle(t.Level).Render(truncate(t.Message, max(m.width-2, 10))))
}
