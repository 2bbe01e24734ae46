package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which panes stack vertically.
	LayoutCompactWidth = 110

	// LayoutWideWidth is the minimum width for the full header.
	LayoutWideWidth = 140
)

// Pane sizing.
const (
	// headerRows covers the status header and command bar.
	headerRows = 2

	// toastRows is the toast line under the panes.
	toastRows = 1

	// pickerMinRows keeps the file list usable on short terminals.
	pickerMinRows = 3

	// pickerMargin is subtracted from window height by the file picker when
	// AutoHeight is on.
	pickerMargin = 5
)

// Log display limits.
const (
	// LogTailLines is how many lines of the log file the log view keeps.
	LogTailLines = 400
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 250 * time.Millisecond

	// uploadTimeout bounds a single upload including its notification.
	uploadTimeout = 30 * time.Second
)
