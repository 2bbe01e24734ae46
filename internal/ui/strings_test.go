package ui

import (
	"strings"
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"negative", -5 * time.Second, "now"},
		{"subsecond", 300 * time.Millisecond, "now"},
		{"seconds", 12 * time.Second, "12s"},
		{"minute exact", time.Minute, "1m"},
		{"minute seconds", 61 * time.Second, "1m 1s"},
		{"hours only", 2*time.Hour + 10*time.Second, "2h"},
		{"hours minutes", 2*time.Hour + 3*time.Minute, "2h 3m"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := humanizeDuration(tc.in); got != tc.want {
				t.Fatalf("humanizeDuration(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	if got := truncateMiddle("short.png", 20); got != "short.png" {
		t.Fatalf("truncateMiddle short = %q", got)
	}

	got := truncateMiddle("a-very-long-holiday-photo-name.jpeg", 16)
	if !strings.HasSuffix(got, ".jpeg") || !strings.Contains(got, "…") {
		t.Fatalf("truncateMiddle kept = %q, want extension and ellipsis", got)
	}
	if n := len([]rune(got)); n != 16 {
		t.Fatalf("truncateMiddle length = %d, want 16 (%q)", n, got)
	}

	plain := truncateMiddle("abcdefghijklmnopqrstuvwxyz", 9)
	if plain != "abcd…wxyz" {
		t.Fatalf("truncateMiddle plain = %q, want abcd…wxyz", plain)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("data:image/png;base64,AAAA", 10); got != "data:im..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("truncate short = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:        "0 B",
		1023:     "1023 B",
		1024:     "1.0 KiB",
		1536:     "1.5 KiB",
		10 << 20: "10.0 MiB",
	}
	for in, want := range cases {
		if got := formatBytes(in); got != want {
			t.Fatalf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("3f2a9c1e-1111-2222-3333-444455556666"); got != "3f2a9c1e" {
		t.Fatalf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("shortID short = %q", got)
	}
}
