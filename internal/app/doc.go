// Package app is the composition root for photocraft.
//
// Build loads configuration and wires the pieces together:
//
//  1. config.Load plus command-line overrides
//  2. logging.New (log file for the TUI, stderr for headless commands)
//  3. webhook.Client with the configured endpoint and delivery mode
//  4. a status.Checker: the HTTP client when status_url is set, a demo
//     checker with --demo, otherwise a stub that never resolves
//  5. upload.Handler and poller.Poller sharing one delivery-tracking sender
//  6. a state.Store fed by both, read by the UI on its tick
//
// Run builds the services and hands them to the bubbletea UI. The CLI
// subcommands call Build directly and drive the handler or poller headless.
// Services.Close stops any in-flight selection session before the log file
// is released.
package app
