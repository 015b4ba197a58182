// Package watch re-runs a build action whenever source files change.
// Bursts of events (editor save dances, formatters) are coalesced with
// a debounce window so a save triggers one rebuild, not five.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/trubylang/truby/internal/config"
)

// DefaultDebounce is the window used when the caller passes no
// explicit duration.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches source trees and invokes an action once per burst of
// changes.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a watcher over roots. Directories are registered
// recursively; dot-directories are skipped so cache and VCS writes
// never retrigger a build.
func New(roots []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{fw: fw, debounce: debounce, done: make(chan struct{})}
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// Run blocks, invoking action with the sorted batch of changed paths
// after each debounce window closes. It returns nil once Close is
// called, or the watcher's error if the OS notification stream fails.
func (w *Watcher) Run(action func(paths []string)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					// fsnotify is not recursive: new subdirectories
					// have to join the watch set by hand.
					_ = w.addTree(ev.Name)
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			timer, timerC = nil, nil
			action(paths)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			return err
		case <-w.done:
			return nil
		}
	}
}

// relevant keeps source files and the project config; chmod-only
// events and unrelated files (emitted .rb output included) are noise.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if config.HasSourceExt(ev.Name) {
		return true
	}
	return filepath.Base(ev.Name) == config.ConfigFileName
}

// Close stops Run. Safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.fw.Close()
}
