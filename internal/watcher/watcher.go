package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
)

// DefaultDebounce batches the burst of events an editor save produces
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc is called once per burst of changes to a watched caption file
type ReloadFunc func(ctx context.Context, page model.Page, path string) error

// CaptionWatcher reloads caption files when they change on disk.
// Parent directories are watched so files replaced by rename are still seen.
type CaptionWatcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]model.Page // cleaned path -> page
	clock    clock.Clock
	debounce time.Duration
	reload   ReloadFunc
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]clock.Timer
	fire    chan string
	done    chan struct{}
}

// New creates a CaptionWatcher for the given page files
func New(files map[model.Page]string, clk clock.Clock, debounce time.Duration, reload ReloadFunc, logger *slog.Logger) (*CaptionWatcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	cw := &CaptionWatcher{
		watcher:  w,
		files:    make(map[string]model.Page, len(files)),
		clock:    clk,
		debounce: debounce,
		reload:   reload,
		logger:   logger.With(slog.String("component", "watcher")),
		pending:  make(map[string]clock.Timer),
		fire:     make(chan string),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for page, path := range files {
		clean := filepath.Clean(path)
		cw.files[clean] = page
		dirs[filepath.Dir(clean)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return cw, nil
}

// Run processes file events until ctx is cancelled, then releases the watcher
func (cw *CaptionWatcher) Run(ctx context.Context) error {
	defer cw.stop()

	cw.logger.Info("watching caption files", slog.Int("files", len(cw.files)))
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return nil
			}
			cw.handleEvent(event)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return nil
			}
			cw.logger.Error("watch error", slog.String("error", err.Error()))

		case path := <-cw.fire:
			page := cw.files[path]
			if err := cw.reload(ctx, page, path); err != nil {
				cw.logger.Warn("caption reload failed",
					slog.String("page", string(page)),
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				continue
			}
			cw.logger.Info("captions reloaded", slog.String("page", string(page)))
		}
	}
}

func (cw *CaptionWatcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := cw.files[path]; !ok {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		// Removes and renames away keep the last loaded captions
		return
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()
	if t, ok := cw.pending[path]; ok {
		t.Reset(cw.debounce)
		return
	}
	cw.pending[path] = cw.clock.AfterFunc(cw.debounce, func() {
		cw.mu.Lock()
		delete(cw.pending, path)
		cw.mu.Unlock()

		select {
		case cw.fire <- path:
		case <-cw.done:
		}
	})
}

func (cw *CaptionWatcher) stop() {
	close(cw.done)

	cw.mu.Lock()
	for path, t := range cw.pending {
		t.Stop()
		delete(cw.pending, path)
	}
	cw.mu.Unlock()

	if err := cw.watcher.Close(); err != nil {
		cw.logger.Error("close watcher", slog.String("error", err.Error()))
	}
}
