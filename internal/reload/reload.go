// Package reload watches config files and directories and invokes a
// callback when they change, coalescing bursts of filesystem events into a
// single trigger. The CLI uses it to rebuild the application in dev mode.
package reload

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem change events into calls of a trigger
// function. Directories are watched recursively, including directories
// created after the watch starts.
type Watcher struct {
	fw       *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration
	trigger  func()

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}

	stop chan struct{}
	done chan struct{}
}

// New starts a watcher that calls trigger once per quiet period of
// debounce after a change. Close releases it.
func New(debounce time.Duration, log *slog.Logger, trigger func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		fw:       fw,
		log:      log,
		debounce: debounce,
		trigger:  trigger,
		files:    map[string]struct{}{},
		dirs:     map[string]struct{}{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Add watches a file or, recursively, a directory. Watching a file watches
// its parent directory so the watch survives rename-and-replace saves.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !info.IsDir() {
		if err := w.fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.files[abs] = struct{}{}
		return nil
	}

	if err := addRecursive(w.fw, abs); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.dirs[abs] = struct{}{}
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	close(w.stop)
	err := w.fw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.debounce)
		timerC = timer.C
	}

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-timerC:
			timerC = nil
			w.trigger()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", "error", err)
		case evt, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 {
				w.watchNewDir(evt.Name)
			}
			if w.matches(evt) {
				resetTimer()
			}
		}
	}
}

// watchNewDir extends the watch to directories created under a watched
// root.
func (w *Watcher) watchNewDir(name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	w.mu.Lock()
	under := w.underWatchedDir(name)
	w.mu.Unlock()
	if !under {
		return
	}
	if err := w.fw.Add(name); err != nil {
		w.log.Error("watch new directory", "path", name, "error", err)
	}
}

// matches reports whether an event should schedule a reload: a relevant op
// on a watched file or anywhere under a watched directory, ignoring
// dotfiles.
func (w *Watcher) matches(evt fsnotify.Event) bool {
	name := strings.TrimSpace(evt.Name)
	if name == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
		return false
	}
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; ok {
		return true
	}
	return w.underWatchedDir(name)
}

func (w *Watcher) underWatchedDir(name string) bool {
	for dir := range w.dirs {
		if name == dir || strings.HasPrefix(name, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fw.Add(path)
	})
}
