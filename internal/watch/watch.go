// Package watch provides extension-filtered directory watching. A manager
// hands out monotonically increasing watch IDs; each watch covers a
// directory tree recursively and reports file changes to a handler, with
// changed events carrying the file's new content so consumers never race
// a second read against further writes.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/mosaicterm/mosaic/internal/logging"
)

// EventKind classifies a watch event.
type EventKind int

const (
	// Changed reports a modified file. Content carries the file's bytes.
	Changed EventKind = iota
	// Created reports a new file.
	Created
	// Removed reports a deleted or renamed-away file.
	Removed
	// WatchError reports a watcher failure. Err carries the cause.
	WatchError
)

// Event is one observation from a directory watch.
type Event struct {
	Kind    EventKind
	Path    string
	Content []byte
	Err     error
}

// WatchID identifies one active watch. IDs increase monotonically and are
// never reused within a manager's lifetime.
type WatchID uint64

// Manager owns a set of directory watches.
type Manager struct {
	mu      sync.Mutex
	watches map[WatchID]*dirWatch
	next    atomic.Uint64
	logger  *logging.Logger
	closed  bool
}

// NewManager creates an empty watch manager.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		watches: make(map[WatchID]*dirWatch),
		logger:  logger.WithComponent("watch"),
	}
}

// Watch starts watching dir and all of its subdirectories, present and
// future. Only files whose extension (without the dot, case-insensitive)
// appears in extensions are reported; an empty extensions list reports
// every file. The handler is called from the watch's own goroutine.
func (m *Manager) Watch(dir string, extensions []string, handler func(Event)) (WatchID, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("watch %s: not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, fmt.Errorf("creating watcher: %w", err)
	}

	w := &dirWatch{
		fw:      fw,
		exts:    extensionSet(extensions),
		handler: handler,
		stopCh:  make(chan struct{}),
		logger:  m.logger,
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return 0, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		fw.Close()
		return 0, fmt.Errorf("watch %s: manager closed", dir)
	}
	id := WatchID(m.next.Add(1))
	m.watches[id] = w
	m.mu.Unlock()

	go w.loop()
	m.logger.Debug("watch started", "watch_id", uint64(id), "dir", dir, "extensions", strings.Join(extensions, ","))
	return id, nil
}

// Unwatch stops the watch. Unknown IDs are a no-op.
func (m *Manager) Unwatch(id WatchID) bool {
	m.mu.Lock()
	w, ok := m.watches[id]
	delete(m.watches, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	w.stop()
	m.logger.Debug("watch stopped", "watch_id", uint64(id))
	return true
}

// Close stops every watch. The manager accepts no new watches afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	watches := m.watches
	m.watches = make(map[WatchID]*dirWatch)
	m.mu.Unlock()
	for _, w := range watches {
		w.stop()
	}
}

type dirWatch struct {
	fw      *fsnotify.Watcher
	exts    map[string]bool
	handler func(Event)
	stopCh  chan struct{}
	once    sync.Once
	logger  *logging.Logger
}

func (w *dirWatch) stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.fw.Close()
	})
}

// addTree registers dir and every subdirectory under it.
func (w *dirWatch) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *dirWatch) loop() {
	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.handler(Event{Kind: WatchError, Err: err})
		}
	}
}

func (w *dirWatch) dispatch(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// New subdirectory: extend the watch. Files already inside
			// (written before the Add lands) surface via later writes.
			if err := w.addTree(ev.Name); err != nil {
				w.handler(Event{Kind: WatchError, Err: err})
			}
			return
		}
		if w.matches(ev.Name) {
			w.handler(Event{Kind: Created, Path: ev.Name})
		}

	case ev.Op.Has(fsnotify.Write):
		if !w.matches(ev.Name) {
			return
		}
		content, err := os.ReadFile(ev.Name)
		if err != nil {
			w.handler(Event{Kind: WatchError, Path: ev.Name, Err: err})
			return
		}
		w.handler(Event{Kind: Changed, Path: ev.Name, Content: content})

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.matches(ev.Name) {
			w.handler(Event{Kind: Removed, Path: ev.Name})
		}
	}
}

func (w *dirWatch) matches(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return w.exts[strings.ToLower(ext)]
}

func extensionSet(extensions []string) map[string]bool {
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return set
}
