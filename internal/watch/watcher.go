// Package watch reports changes to a single file using fsnotify with a
// polling fallback. The file does not need to exist when watching starts.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval used when fsnotify is unavailable.
const DefaultPollInterval = 2 * time.Second

// ErrClosed is returned by [Watcher.Wait] after [Watcher.Close].
var ErrClosed = errors.New("watcher closed")

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors one file for creation and writes.
//
// The parent directory is what fsnotify watches, so a file that is created,
// or replaced by rename, after the watcher starts is still seen.
type Watcher struct {
	// path is the cleaned path of the monitored file.
	path string
	// events delivers a signal each time the file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// fsw is the underlying fsnotify watcher; nil when polling from the start.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration
}

// New creates a Watcher for path. It uses fsnotify on the parent directory
// and falls back to polling if fsnotify is unavailable. The parent directory
// must exist.
func New(path string) (*Watcher, error) {
	return newWatcher(path, DefaultPollInterval)
}

func newWatcher(path string, pollInterval time.Duration) (*Watcher, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: parent %s is not a directory", path, dir)
	}

	w := &Watcher{
		path:         path,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}

	if err := fsw.Add(dir); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", dir, "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Path returns the monitored file path.
func (w *Watcher) Path() string {
	return w.path
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when the file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Drain discards a pending event, if any. Callers use it before waiting so
// that only changes made after the call are observed.
func (w *Watcher) Drain() {
	select {
	case <-w.events:
	default:
	}
}

// Wait drains any earlier event and blocks until the file changes, ctx is
// done, or the watcher is closed.
func (w *Watcher) Wait(ctx context.Context) error {
	w.Drain()
	select {
	case <-w.events:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrClosed
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// watch loops over fsnotify events and forwards write/create notifications
// for the monitored file. If fsnotify reports an error, watch switches to
// [Watcher.poll] for the rest of the watcher's life.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.notify()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "path", w.path, "error", err)
			w.startPolling()
			return
		}
	}
}

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// poll periodically stats the file and sends a notification when its
// modification time advances or the file appears. A file that is removed and
// recreated counts as a change even if its new mtime is older.
func (w *Watcher) poll() {
	var lastMod time.Time
	exists := false
	if info, err := os.Stat(w.path); err == nil {
		lastMod, exists = info.ModTime(), true
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				exists = false
				continue
			}
			if !exists || !info.ModTime().Equal(lastMod) {
				lastMod, exists = info.ModTime(), true
				w.notify()
			}
		}
	}
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
