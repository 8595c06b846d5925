package testing

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// DefaultDebounceInterval is how long the watcher waits for further
// changes before re-running.
const DefaultDebounceInterval = 500 * time.Millisecond

// QueryWatcher re-runs a batch when query files change. Runs never
// overlap: changes seen during a run are coalesced into one follow-up run.
type QueryWatcher struct {
	root     string
	debounce time.Duration

	debounceMu    sync.Mutex
	debounceTimer *time.Timer

	ready chan struct{}
}

// NewQueryWatcher watches every directory beneath root
func NewQueryWatcher(root string, debounce time.Duration) *QueryWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &QueryWatcher{
		root:     root,
		debounce: debounce,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watches are in place.
func (w *QueryWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Watch calls run after each debounced change until ctx is cancelled. It
// does not run the batch up front.
func (w *QueryWatcher) Watch(ctx context.Context, run func(context.Context)) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	if err := w.addTree(fsWatcher, w.root); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		w.processEvents(ctx, fsWatcher, trigger)
	}()

	logging.Info("QueryWatcher", "Watching %s for query changes", w.root)
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			fsWatcher.Close()
			<-eventsDone
			return nil
		case <-trigger:
			run(ctx)
		}
	}
}

// addTree adds a watch for dir and each directory beneath it; fsnotify
// does not recurse on its own.
func (w *QueryWatcher) addTree(fsWatcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		logging.Debug("QueryWatcher", "Watching directory: %s", path)
		return fsWatcher.Add(path)
	})
}

func (w *QueryWatcher) processEvents(ctx context.Context, fsWatcher *fsnotify.Watcher, trigger chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(fsWatcher, event, trigger)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			logging.Error("QueryWatcher", err, "Filesystem watcher error")
		}
	}
}

func (w *QueryWatcher) handleEvent(fsWatcher *fsnotify.Watcher, event fsnotify.Event, trigger chan<- struct{}) {
	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.addTree(fsWatcher, event.Name); err != nil {
				logging.Warn("QueryWatcher", "Failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}
	if !isYAMLFile(event.Name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	logging.Debug("QueryWatcher", "Change detected: %s %s", event.Op, event.Name)
	w.triggerDebounced(trigger)
}

// triggerDebounced signals a run once no change has arrived for the
// debounce interval. A pending signal absorbs later ones.
func (w *QueryWatcher) triggerDebounced(trigger chan<- struct{}) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
}

func (w *QueryWatcher) stopTimer() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
