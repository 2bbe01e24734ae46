package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/upload"
)

// previewRows is the fixed height of the preview block above the file list.
const previewRows = 6

// renderMain renders the header, the three panes and the toast line.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderPanes())
	b.WriteString("\n")
	b.WriteString(m.renderToast())
	return b.String()
}

func (m Model) compact() bool {
	return m.width < LayoutCompactWidth
}

func (m Model) bodyHeight() int {
	return max(m.height-headerRows-toastRows, 0)
}

// paneSizes returns the outer width and height of the upload, gallery and
// session panes.
func (m Model) paneSizes() (up, gal, ses [2]int) {
	h := m.bodyHeight()
	if m.compact() {
		galleryH := len(m.templates) + 3
		sessionH := 9
		uploadH := max(h-galleryH-sessionH, previewRows+pickerMinRows+3)
		return [2]int{m.width, uploadH}, [2]int{m.width, galleryH}, [2]int{m.width, sessionH}
	}
	left := m.width * 2 / 5
	right := m.width - left
	galleryH := h / 2
	return [2]int{left, h}, [2]int{right, galleryH}, [2]int{right, h - galleryH}
}

// pickerRows is how many file entries fit under the preview block.
func (m Model) pickerRows() int {
	up, _, _ := m.paneSizes()
	// borders, title line, preview block, spacer
	return max(up[1]-2-1-previewRows-1, pickerMinRows)
}

func (m Model) renderPanes() string {
	up, gal, ses := m.paneSizes()
	uploadPane := m.renderUploadPane(up[0], up[1])
	galleryPane := m.renderGalleryPane(gal[0], gal[1])
	sessionPane := m.renderSessionPane(ses[0], ses[1])

	if m.compact() {
		return lipgloss.JoinVertical(lipgloss.Left, uploadPane, galleryPane, sessionPane)
	}
	right := lipgloss.JoinVertical(lipgloss.Left, galleryPane, sessionPane)
	return lipgloss.JoinHorizontal(lipgloss.Top, uploadPane, right)
}

func (m Model) paneTitle(title string, focused bool) string {
	styles := m.theme.Styles()
	if focused {
		return styles.AccentText.Bold(true).Render(title)
	}
	return styles.MutedText.Bold(true).Render(title)
}

// renderUploadPane shows the preview block and the file picker.
func (m Model) renderUploadPane(width, height int) string {
	focused := m.focus == PaneUpload
	styles := m.theme.Styles()
	inner := max(width-4, 10)

	lines := []string{m.paneTitle("Upload Photo", focused)}
	lines = append(lines, m.previewLines(inner)...)
	for len(lines) < previewRows+1 {
		lines = append(lines, "")
	}
	lines = append(lines, styles.FaintText.Render(truncateMiddle(m.picker.CurrentDirectory, inner)))

	picker := lipgloss.NewStyle().MaxHeight(m.pickerRows()).Render(m.picker.View())
	content := strings.Join(lines, "\n") + "\n" + picker

	return m.paneStyle(focused, width, height).Padding(0, 1).Width(max(width-2, 0)).Render(content)
}

func (m Model) previewLines(width int) []string {
	styles := m.theme.Styles()
	if m.uploading != "" {
		return []string{
			m.spinner.View() + " " + styles.InfoText.Render("Uploading "+truncateMiddle(filepath.Base(m.uploading), width-12)),
		}
	}
	if !m.snapshot.HasPreview {
		return []string{
			styles.MutedText.Render("Drop or pick a photo"),
			styles.FaintText.Render(upload.SizeHint),
		}
	}

	img := m.snapshot.Preview
	label := func(name string) string { return styles.FaintText.Render(fmt.Sprintf("%-8s", name)) }
	return []string{
		label("File") + styles.Text.Bold(true).Render(truncateMiddle(img.FileName, width-9)),
		label("Size") + styles.Text.Render(formatBytes(img.Size)),
		label("Type") + styles.Text.Render(img.MIMEType),
		label("Loaded") + styles.MutedText.Render(img.LoadedAt.Format("15:04:05")),
		label("Data") + styles.FaintText.Render(truncate(img.DataURI, width-9)),
	}
}

// renderGalleryPane lists the template cards.
func (m Model) renderGalleryPane(width, height int) string {
	focused := m.focus == PaneGallery
	styles := m.theme.Styles()
	inner := max(width-4, 10)

	activeID := 0
	if m.snapshot.HasSession && !m.snapshot.Session.State.Terminal() {
		activeID = m.snapshot.Session.Template.ID
	}

	lines := []string{m.paneTitle("Choose Template", focused)}
	for i, tpl := range m.templates {
		marker := "  "
		if tpl.ID == activeID {
			marker = m.spinner.View() + " "
		}
		card := fmt.Sprintf("[%d] %-18s %s", tpl.ID, tpl.Name, tpl.Dimensions)
		card = truncate(card, inner-lipgloss.Width(marker))
		if i == m.cursor {
			card = styles.Selected.Bold(true).Width(inner - lipgloss.Width(marker)).Render(card)
		} else {
			card = styles.Text.Render(card)
		}
		lines = append(lines, marker+card)
	}

	return m.paneStyle(focused, width, height).Padding(0, 1).Width(max(width-2, 0)).Render(strings.Join(lines, "\n"))
}

// renderSessionPane shows the active or last selection session.
func (m Model) renderSessionPane(width, height int) string {
	focused := m.focus == PaneSession
	styles := m.theme.Styles()
	inner := max(width-4, 10)

	lines := []string{m.paneTitle("Processing", focused)}
	if !m.snapshot.HasSession {
		lines = append(lines, styles.MutedText.Render("Select a template to start"))
		return m.paneStyle(focused, width, height).Padding(0, 1).Width(max(width-2, 0)).Render(strings.Join(lines, "\n"))
	}

	s := m.snapshot.Session
	badge := styles.StateStyle(s.State).Render(strings.ToUpper(strings.ReplaceAll(string(s.State), "_", " ")))
	head := badge + " " + styles.Text.Bold(true).Render(s.Template.Name) + " " + styles.FaintText.Render(s.Template.Dimensions)
	lines = append(lines, head)

	progress := fmt.Sprintf("Attempt %d/%d", s.Attempt, s.MaxAttempts)
	if !s.State.Terminal() {
		progress = m.spinner.View() + " " + progress + styles.FaintText.Render(fmt.Sprintf("  every %s", s.Interval))
	}
	lines = append(lines, progress, m.attemptBar(s, inner))

	switch s.State {
	case poller.StateResolved:
		lines = append(lines, styles.SuccessText.Render("Ready ")+styles.Text.Render(truncateMiddle(s.Artifact, inner-6)))
	case poller.StateTimedOut:
		lines = append(lines, styles.WarningText.Render("Not ready after the final check"))
	case poller.StateFailed:
		lines = append(lines, styles.DangerText.Render(truncate(fmt.Sprint(s.Err), inner)))
	case poller.StateCancelled:
		lines = append(lines, styles.MutedText.Render("Stopped"))
	}
	if s.NotifyErr != nil {
		lines = append(lines, styles.WarningText.Render(truncate("Not delivered: "+s.NotifyErr.Error(), inner)))
	}

	elapsed := s.UpdatedAt.Sub(s.StartedAt)
	if !s.State.Terminal() {
		elapsed = time.Since(s.StartedAt)
	}
	lines = append(lines, styles.FaintText.Render(fmt.Sprintf("session %s  %s", shortID(s.SessionID), humanizeDuration(elapsed))))

	return m.paneStyle(focused, width, height).Padding(0, 1).Width(max(width-2, 0)).Render(strings.Join(lines, "\n"))
}

// attemptBar draws one cell per attempt.
func (m Model) attemptBar(s poller.Snapshot, width int) string {
	styles := m.theme.Styles()
	total := s.MaxAttempts
	if total <= 0 || total*2 > width {
		return ""
	}
	var b strings.Builder
	for i := 1; i <= total; i++ {
		switch {
		case i < s.Attempt || (i == s.Attempt && s.State != poller.StateResolved):
			b.WriteString(styles.MutedText.Render("■ "))
		case i == s.Attempt:
			b.WriteString(styles.SuccessText.Render("■ "))
		default:
			b.WriteString(styles.FaintText.Render("□ "))
		}
	}
	return b.String()
}
