// This file implements a file system watcher for the upload root. It uses
// OS-level file system events to tell connected browsers which directory
// listings went stale.

package watcher

import (
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vrsandeep/filebox/internal/models"
	"github.com/vrsandeep/filebox/internal/util"
)

// Broadcaster sends a message to every connected client.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// WatcherService watches the upload root for file system changes and
// broadcasts a tree change per affected directory once things settle.
type WatcherService struct {
	root          string
	out           Broadcaster
	watcher       *fsnotify.Watcher
	changedDirs   map[string]bool
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWatcherService creates a new file system watcher service.
func NewWatcherService(root string, debounce time.Duration, out Broadcaster) *WatcherService {
	return &WatcherService{
		root:          root,
		out:           out,
		changedDirs:   make(map[string]bool),
		debounceDelay: debounce,
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the root directory and everything below it.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := w.addTree(w.root); err != nil {
		watcher.Close()
		return err
	}

	log.Printf("File watcher started for: %s", w.root)
	go w.processEvents()
	return nil
}

// Stop stops the file watcher service.
func (w *WatcherService) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}

// addTree watches dir and its subdirectories. Files are watched via their
// parent directory.
func (w *WatcherService) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *WatcherService) handleEvent(event fsnotify.Event) {
	// Chmod fires on plain reads in some setups.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Directories created by extraction may already have children.
			if err := w.addTree(event.Name); err != nil {
				log.Printf("File watcher could not watch %s: %v", event.Name, err)
			}
		}
	}

	w.MarkChanged(filepath.Dir(event.Name))
}

// MarkChanged records dir as stale and restarts the debounce timer.
func (w *WatcherService) MarkChanged(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.changedDirs[util.RelativeTo(w.root, dir)] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

func (w *WatcherService) flush() {
	w.mu.Lock()
	if len(w.changedDirs) == 0 {
		w.mu.Unlock()
		return
	}
	dirs := make([]string, 0, len(w.changedDirs))
	for dir := range w.changedDirs {
		dirs = append(dirs, dir)
	}
	w.changedDirs = make(map[string]bool)
	w.mu.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	sort.Strings(dirs)
	for _, dir := range dirs {
		w.out.BroadcastJSON(models.TreeChange{Path: dir})
	}
}
