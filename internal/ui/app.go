package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/photocraft/internal/gallery"
	"github.com/five82/photocraft/internal/poller"
	"github.com/five82/photocraft/internal/prefs"
	"github.com/five82/photocraft/internal/state"
	"github.com/five82/photocraft/internal/upload"
)

// Uploader takes a file path as the current photo.
type Uploader interface {
	Select(ctx context.Context, path string) (upload.Image, error)
	Clear()
}

// Selector runs template selection sessions.
type Selector interface {
	Select(ctx context.Context, tpl gallery.Template) *poller.Session
	Stop()
}

// View represents the current active view.
type View int

const (
	ViewMain View = iota
	ViewLogs
)

// Pane identifies a focusable pane on the main view.
type Pane int

const (
	PaneUpload Pane = iota
	PaneGallery
	PaneSession
	paneCount
)

// Options configures the UI.
type Options struct {
	Context      context.Context
	Store        *state.Store
	Uploads      Uploader
	Sessions     Selector
	PollTick     time.Duration
	ThemeName    string
	LastTemplate int
	PrefsPath    string
	LogPath      string
	StartDir     string
	Endpoint     string
	Mode         string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	uploads   Uploader
	sessions  Selector
	prefsPath string
	logPath   string
	endpoint  string
	mode      string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	focus       Pane
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// Upload pane
	picker    filepicker.Model
	uploading string // file name while an upload is in flight
	lastDir   string // directory of the last successful upload

	// Gallery pane
	templates []gallery.Template
	cursor    int

	// Session pane
	spinner spinner.Model
	selects *selectGate

	// Log view
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	picker := filepicker.New()
	picker.AllowedTypes = upload.AcceptedExtensions()
	picker.AutoHeight = true
	picker.CurrentDirectory = opts.StartDir
	if picker.CurrentDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			picker.CurrentDirectory = wd
		} else {
			picker.CurrentDirectory = "."
		}
	}

	templates := gallery.All()
	cursor := 0
	for i, tpl := range templates {
		if tpl.ID == opts.LastTemplate {
			cursor = i
		}
	}

	return Model{
		ctx:         ctx,
		selects:     &selectGate{},
		store:       opts.Store,
		uploads:     opts.Uploads,
		sessions:    opts.Sessions,
		prefsPath:   prefsPath,
		logPath:     opts.LogPath,
		endpoint:    opts.Endpoint,
		mode:        opts.Mode,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewMain,
		focus:       PaneUpload,
		picker:      picker,
		lastDir:     opts.StartDir,
		templates:   templates,
		cursor:      cursor,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		logState:    newLogState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.picker.Init(),
		m.spinner.Tick,
		tickCmd(m.pollTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		return m.resizePicker()

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		return m, nil

	case uploadResultMsg:
		return m.handleUploadResult(msg)

	case sessionStartedMsg:
		if !m.selects.current(msg.seq) {
			return m, nil
		}
		m.savePrefs()
		return m, fetchSnapshotCmd(m.store)

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Directory listings and other picker messages.
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.currentView == ViewLogs {
		return m.renderHeader() + "\n" + m.renderCommandBar() + "\n" + m.renderLogs()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.currentView == ViewLogs && m.logState.searchActive && msg.Type != tea.KeyCtrlC {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.sessions != nil {
			m.sessions.Stop()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewLogs {
			m.currentView = ViewMain
			return m, nil
		}
		m.currentView = ViewLogs
		cmd := m.refreshLogs()
		return m, cmd
	}

	if m.currentView == ViewLogs {
		return m.handleLogsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		m.focus = (m.focus + 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.focus = (m.focus + paneCount - 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.Template) && len(msg.Runes) == 1:
		return m.selectTemplate(int(msg.Runes[0] - '1'))

	case key.Matches(msg, m.keys.ClearPreview):
		if m.uploads != nil {
			m.uploads.Clear()
		}
		m.notify(state.ToastInfo, "Photo cleared")
		return m, fetchSnapshotCmd(m.store)

	case key.Matches(msg, m.keys.CopyDataURI):
		m.copyDataURI()
		return m, fetchSnapshotCmd(m.store)

	case key.Matches(msg, m.keys.StopSession):
		if m.sessions != nil {
			m.sessions.Stop()
		}
		return m, fetchSnapshotCmd(m.store)
	}

	switch m.focus {
	case PaneUpload:
		return m.handlePickerKey(msg)
	case PaneGallery:
		return m.handleGalleryKey(msg)
	}
	return m, nil
}

func (m Model) handleGalleryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.templates)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		return m.selectTemplate(m.cursor)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		return m.startUpload(path, cmd)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.notify(state.ToastError, fmt.Sprintf("%s is not a png, jpg or jpeg file", truncateMiddle(path, 40)))
		return m, tea.Batch(cmd, fetchSnapshotCmd(m.store))
	}
	return m, cmd
}

func (m Model) startUpload(path string, pending tea.Cmd) (tea.Model, tea.Cmd) {
	if m.uploads == nil {
		return m, pending
	}
	m.uploading = path
	return m, tea.Batch(pending, uploadCmd(m.ctx, m.uploads, path))
}

func (m Model) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	m.uploading = ""
	if msg.err != nil {
		m.notify(state.ToastError, "Upload failed: "+msg.err.Error())
	} else {
		m.notify(state.ToastSuccess, fmt.Sprintf("%s uploaded (%s)", msg.img.FileName, formatBytes(msg.img.Size)))
		m.lastDir = filepath.Dir(msg.path)
		m.savePrefs()
	}
	return m, fetchSnapshotCmd(m.store)
}

func (m Model) selectTemplate(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(m.templates) {
		return m, nil
	}
	m.cursor = idx
	m.focus = PaneGallery
	if m.sessions == nil {
		return m, nil
	}
	return m, m.selects.cmd(m.ctx, m.sessions, m.templates[idx])
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// resizePicker gives the file picker the rows left in the upload pane.
func (m Model) resizePicker() (tea.Model, tea.Cmd) {
	rows := m.pickerRows()
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(tea.WindowSizeMsg{Width: m.width, Height: rows + pickerMargin})
	return m, cmd
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

func (m *Model) copyDataURI() {
	if !m.snapshot.HasPreview {
		m.notify(state.ToastWarning, "No photo to copy")
		return
	}
	if err := writeClipboard(m.snapshot.Preview.DataURI); err != nil {
		m.notify(state.ToastError, "Copy failed: "+err.Error())
		return
	}
	m.notify(state.ToastSuccess, fmt.Sprintf("Copied data URI of %s (%d chars)", m.snapshot.Preview.FileName, len(m.snapshot.Preview.DataURI)))
}

func (m *Model) notify(level state.ToastLevel, text string) {
	if m.store != nil {
		m.store.Notify(level, text, 0)
	}
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:        m.theme.Name,
		LastTemplate: m.templates[m.cursor].ID,
		LastDir:      m.lastDir,
	})
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type uploadResultMsg struct {
	path string
	img  upload.Image
	err  error
}

type sessionStartedMsg struct {
	seq      uint64
	id       string
	template gallery.Template
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func uploadCmd(ctx context.Context, uploads Uploader, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		img, err := uploads.Select(ctx, path)
		return uploadResultMsg{path: path, img: img, err: err}
	}
}

// selectGate runs template selections one at a time. A selection whose
// keypress has been superseded is dropped, so the last pick always ends up
// as the running session.
type selectGate struct {
	mu     sync.Mutex
	latest atomic.Uint64
}

func (g *selectGate) current(seq uint64) bool {
	return g.latest.Load() == seq
}

func (g *selectGate) cmd(ctx context.Context, sessions Selector, tpl gallery.Template) tea.Cmd {
	seq := g.latest.Add(1)
	return func() tea.Msg {
		g.mu.Lock()
		defer g.mu.Unlock()
		if !g.current(seq) {
			return nil
		}
		s := sessions.Select(ctx, tpl)
		return sessionStartedMsg{seq: seq, id: s.ID(), template: tpl}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if opts.Sessions != nil {
		opts.Sessions.Stop()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// paneStyle renders a bordered pane.
func (m Model) paneStyle(focused bool, width, height int) lipgloss.Style {
	border := m.theme.Border
	bg := m.theme.SurfaceAlt
	if focused {
		border = m.theme.BorderFocus
		bg = m.theme.FocusBg
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Background(lipgloss.Color(bg)).
		Width(max(width-2, 0)).
		Height(max(height-2, 0))
}
