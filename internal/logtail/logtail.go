package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed slog text record.
type Entry struct {
	Time    string
	Level   string
	Message string
	// Attrs holds the remaining key=value pairs verbatim.
	Attrs string
	Raw   string
}

var (
	timeRe    = regexp.MustCompile(`(?:^|\s)time=(\S+)`)
	levelRe   = regexp.MustCompile(`(?:^|\s)level=(\S+)`)
	msgRe     = regexp.MustCompile(`(?:^|\s)msg=("(?:[^"\\]|\\.)*"|\S+)`)
	sessionRe = regexp.MustCompile(`(?:^|\s)session_id=(\S+)`)
)

// Parse splits a slog text line into its fields. Lines that do not look like
// slog output come back with only Raw and Message set.
func Parse(line string) Entry {
	e := Entry{Raw: line}
	rest := line

	if m := timeRe.FindStringSubmatchIndex(rest); m != nil {
		e.Time = rest[m[2]:m[3]]
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := levelRe.FindStringSubmatchIndex(rest); m != nil {
		e.Level = rest[m[2]:m[3]]
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if m := msgRe.FindStringSubmatchIndex(rest); m != nil {
		msg := rest[m[2]:m[3]]
		if unquoted, err := strconv.Unquote(msg); err == nil {
			msg = unquoted
		}
		e.Message = msg
		rest = rest[:m[0]] + rest[m[1]:]
	}
	if e.Level == "" && e.Message == "" {
		e.Message = line
		return e
	}
	e.Attrs = strings.TrimSpace(rest)
	return e
}

// SessionID returns the session_id attribute of line, if present.
func SessionID(line string) string {
	if m := sessionRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// FilterSession keeps the lines tagged with the given session id. An empty
// id keeps everything.
func FilterSession(lines []string, id string) []string {
	if id == "" {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if SessionID(line) == id {
			out = append(out, line)
		}
	}
	return out
}
