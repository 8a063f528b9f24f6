package tables

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a table file when it changes on disk and hands the
// parsed result to a callback. A file that fails to parse is logged and
// the previous tables stay in effect.
type Watcher struct {
	path     string
	settle   time.Duration
	onChange func(*Tables)
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for path. settle is the quiet period
// after the last write before the file is reloaded.
func NewWatcher(path string, settle time.Duration, onChange func(*Tables), logger *slog.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = 100 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Editors often replace the file, so watch the parent directory.
	path = filepath.Clean(path)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch tables directory: %w", err)
	}

	return &Watcher{
		path:     path,
		settle:   settle,
		onChange: onChange,
		logger:   logger,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start processes file events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Go(func() {
		w.processEvents(ctx)
	})
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("tables watcher error", "error", err)
		}
	}
}

// scheduleReload debounces bursts of writes into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	t, err := Load(w.path)
	if err != nil {
		w.logger.Warn("tables reload failed, keeping previous tables", "path", w.path, "error", err)
		return
	}

	w.logger.Info("tables reloaded", "path", w.path,
		"blocklist_entries", len(t.Blocklist),
		"aliases", len(t.CollectionAliases),
	)
	w.onChange(t)
}
