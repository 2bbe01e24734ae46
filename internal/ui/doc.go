// Package ui provides the terminal interface for photocraft.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds all view state and talks to
// the rest of the application through two small interfaces:
//
//   - Uploader: turns a picked file into the current preview
//   - Selector: starts and stops template selection sessions
//
// Rendering reads from a state.Store snapshot that is refreshed on a fixed
// tick, so background work (webhook deliveries, polling sessions) never
// touches the model directly.
//
// # Package Structure
//
//   - app.go: Model, Update loop, commands and Run
//   - panes.go: upload, gallery and processing panes
//   - header.go: status header, command bar and toast line
//   - logs.go: activity log view with follow, session filter and search
//   - help.go: help overlay built from the key map
//   - keys.go: key bindings
//   - theme.go, style_helpers.go: color themes and background-safe styling
//   - layout.go, strings.go: sizing constants and text helpers
//
// # Views
//
// The main view shows three panes. Tab moves focus between them:
//
//   - Upload Photo: a file picker limited to png, jpg and jpeg, plus the
//     current preview
//   - Choose Template: the four gallery cards; 1-4 select directly
//   - Processing: state and attempt progress of the latest session
//
// The activity log view (L) tails the log file written by the application.
//
// # Keyboard Shortcuts
//
//   - tab/shift+tab: Cycle panes
//   - 1-4, enter: Select a template
//   - x: Clear the photo
//   - s: Stop checking
//   - L: Toggle the activity log
//   - space, f, /, n, N: Follow, session filter and search in the log
//   - T: Cycle theme
//   - h/?: Toggle help
//   - e/ctrl+c: Quit
package ui
