// Package logtail reads the tail of the photocraft log file and splits slog
// text records into fields for display.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded by N
// no matter how large the file grows. Parse understands the key=value layout
// written by log/slog's text handler; FilterSession narrows lines to a single
// selection session using the session_id attribute added by the logging
// package.
package logtail
