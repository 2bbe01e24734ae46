// Package watch turns a drop folder into an upload source: images created or
// rewritten in the folder are handed to the upload handler.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/photocraft/internal/logging"
	"github.com/five82/photocraft/internal/upload"
)

// DefaultDebounce is how long a path must stay quiet before it is selected.
const DefaultDebounce = 250 * time.Millisecond

// Selector accepts a file path as the current upload.
type Selector interface {
	Select(ctx context.Context, path string) (upload.Image, error)
}

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
	// OnResult observes every selection attempt.
	OnResult func(path string, img upload.Image, err error)
}

// Watcher feeds files dropped into one directory to a Selector.
type Watcher struct {
	dir      string
	selector Selector
	debounce time.Duration
	logger   *slog.Logger
	onResult func(string, upload.Image, error)
	fs       *fsnotify.Watcher
}

// New starts watching dir. Events are only consumed once Run is called.
func New(dir string, selector Selector, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{
		dir:      abs,
		selector: selector,
		debounce: debounce,
		logger:   logger.With("component", "watch", "dir", abs),
		onResult: opts.OnResult,
		fs:       fsw,
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run dispatches debounced file events until ctx is cancelled. Selections run
// one at a time in arrival order.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
		ready  = make(chan string)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(w.debounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			select {
			case ready <- path:
			case <-ctx.Done():
			}
		})
	}

	w.logger.InfoContext(ctx, "watching drop folder")
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !upload.Accepts(event.Name) {
				w.logger.DebugContext(ctx, "ignoring file", "path", event.Name)
				continue
			}
			schedule(event.Name)

		case path := <-ready:
			w.dispatch(ctx, path)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			w.logger.WarnContext(ctx, "watch error", "error", err)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, path string) {
	img, err := w.selector.Select(ctx, path)
	if err != nil {
		w.logger.WarnContext(ctx, "drop folder upload failed", "path", path, "error", err)
	} else {
		w.logger.InfoContext(ctx, "drop folder upload", "path", path, "size", img.Size)
	}
	if w.onResult != nil {
		w.onResult(path, img, err)
	}
}
