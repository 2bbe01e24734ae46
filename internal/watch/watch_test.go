package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/five82/photocraft/internal/upload"
)

type recordingSelector struct {
	mu    sync.Mutex
	paths []string
	calls chan string
	err   error
}

func newRecordingSelector() *recordingSelector {
	return &recordingSelector{calls: make(chan string, 16)}
}

func (s *recordingSelector) Select(_ context.Context, path string) (upload.Image, error) {
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	s.calls <- path
	return upload.Image{FileName: filepath.Base(path)}, s.err
}

func (s *recordingSelector) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func startWatcher(t *testing.T, sel Selector, opts Options) string {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, sel, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
	return w.Dir()
}

func TestWatcher_DebouncesWritesToOneSelection(t *testing.T) {
	sel := newRecordingSelector()
	dir := startWatcher(t, sel, Options{Debounce: 50 * time.Millisecond})

	path := filepath.Join(dir, "photo.png")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G', byte(i)}, 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	select {
	case got := <-sel.calls:
		if got != path {
			t.Fatalf("selected %q, want %q", got, path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no selection after writing an image")
	}

	time.Sleep(200 * time.Millisecond)
	if n := sel.count(); n != 1 {
		t.Fatalf("selections = %d, want 1", n)
	}
}

func TestWatcher_IgnoresUnacceptedFiles(t *testing.T) {
	sel := newRecordingSelector()
	dir := startWatcher(t, sel, Options{Debounce: 20 * time.Millisecond})

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "shot.JPG"), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case got := <-sel.calls:
		if filepath.Base(got) != "shot.JPG" {
			t.Fatalf("selected %q, want shot.JPG", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no selection for the jpg")
	}
	time.Sleep(100 * time.Millisecond)
	if n := sel.count(); n != 1 {
		t.Fatalf("selections = %d, want 1", n)
	}
}

func TestWatcher_ReportsResults(t *testing.T) {
	sel := newRecordingSelector()
	sel.err = errors.New("decode failed")
	results := make(chan error, 1)
	dir := startWatcher(t, sel, Options{
		Debounce: 20 * time.Millisecond,
		OnResult: func(_ string, _ upload.Image, err error) { results <- err },
	})

	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	select {
	case err := <-results:
		if err == nil || err.Error() != "decode failed" {
			t.Fatalf("OnResult err = %v, want decode failed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnResult never called")
	}
}

func TestNew_MissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent"), newRecordingSelector(), Options{}); err == nil {
		t.Fatal("New should fail for a missing directory")
	}
}
