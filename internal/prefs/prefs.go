// Package prefs persists photocraft UI preferences in
// ~/.config/photocraft/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds what the TUI remembers between runs.
type Prefs struct {
	Theme string `toml:"theme"`
	// LastTemplate is the gallery id highlighted on startup. Zero means none.
	LastTemplate int `toml:"last_template,omitempty"`
	// LastDir is where the file picker opens.
	LastDir string `toml:"last_dir,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/photocraft/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

func defaults() Prefs {
	return Prefs{Theme: defaultTheme}
}

// normalize drops values that no longer make sense.
func (p Prefs) normalize() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	if p.LastTemplate < 0 {
		p.LastTemplate = 0
	}
	if p.LastDir != "" {
		if info, err := os.Stat(p.LastDir); err != nil || !info.IsDir() {
			p.LastDir = ""
		}
	}
	return p
}

// Load reads preferences from path. Prefs are a convenience, so a missing,
// unreadable or malformed file yields defaults rather than an error.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return defaults(), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return defaults(), nil
	}
	p := defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return defaults(), nil
	}
	return p.normalize(), nil
}

// Save writes p to path through a temp file so a crash never leaves a
// truncated prefs file behind.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = defaultPrefsPath
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	return filepath.Abs(path)
}
