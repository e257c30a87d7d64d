// Package workspace ties tabs, layout trees, and sessions together. A
// workspace is an ordered set of tabs, each holding a layout tree and an
// active pane. It enforces the caller-layer rules the tree operations
// deliberately leave out: a tab never loses its last pane, the sole tab is
// never closed, and closing a pane with a live session requires
// confirmation from the caller.
package workspace

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mosaicterm/mosaic/internal/activity"
	"github.com/mosaicterm/mosaic/internal/layout"
	"github.com/mosaicterm/mosaic/internal/logging"
	"github.com/mosaicterm/mosaic/internal/session"
)

// Tab is one workspace tab: an identity, a layout tree, and the active
// pane. The active pane always names a pane present in the tree.
type Tab struct {
	ID     string
	Root   layout.Node
	Active layout.PaneID
}

// Workspace manages the ordered tab set and coordinates tree mutations
// with the session registry. Safe for concurrent use.
type Workspace struct {
	mu      sync.Mutex
	alloc   *layout.Allocator
	tabs    []*Tab
	current int

	registry *session.Registry
	tracker  *activity.Tracker
	logger   *logging.Logger
	splitCap int
}

// Config holds options for creating a Workspace.
type Config struct {
	// Registry, when set, is consulted for working-directory seeding and
	// notified of pane releases.
	Registry *session.Registry
	// Tracker, when set, backs close confirmation.
	Tracker *activity.Tracker
	Logger  *logging.Logger
	// SplitCap caps same-direction siblings. Zero selects the default.
	SplitCap int
	// StartupDir seeds the first tab's pane.
	StartupDir string
}

// New creates a workspace with one tab holding one pane.
func New(cfg Config) *Workspace {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	splitCap := cfg.SplitCap
	if splitCap < 2 {
		splitCap = layout.DefaultSplitCap
	}
	w := &Workspace{
		alloc:    &layout.Allocator{},
		registry: cfg.Registry,
		tracker:  cfg.Tracker,
		logger:   logger.WithComponent("workspace"),
		splitCap: splitCap,
	}
	w.tabs = []*Tab{w.newTabLocked(cfg.StartupDir)}
	return w
}

func (w *Workspace) newTabLocked(startupDir string) *Tab {
	pane := &layout.Pane{ID: w.alloc.NextID(), StartupDir: startupDir}
	return &Tab{
		ID:     uuid.NewString(),
		Root:   pane,
		Active: pane.ID,
	}
}

// NewTab appends a tab seeded with a single pane and selects it. Returns
// the new tab's ID and the seeded pane.
func (w *Workspace) NewTab(startupDir string) (string, layout.PaneID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tab := w.newTabLocked(startupDir)
	w.tabs = append(w.tabs, tab)
	w.current = len(w.tabs) - 1
	w.logger.Debug("tab created", "tab_id", tab.ID, "pane_id", uint64(tab.Active))
	return tab.ID, tab.Active
}

// Tabs returns the tabs in order. The slice is a snapshot; the tabs are
// live and must not be mutated by callers.
func (w *Workspace) Tabs() []*Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	tabs := make([]*Tab, len(w.tabs))
	copy(tabs, w.tabs)
	return tabs
}

// CurrentTab returns the selected tab.
func (w *Workspace) CurrentTab() *Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tabs[w.current]
}

// SelectTab selects the tab with the given ID. Unknown IDs are a no-op.
func (w *Workspace) SelectTab(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, tab := range w.tabs {
		if tab.ID == id {
			w.current = i
			return true
		}
	}
	return false
}

// NextTab selects the following tab, wrapping around.
func (w *Workspace) NextTab() *Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = (w.current + 1) % len(w.tabs)
	return w.tabs[w.current]
}

// PrevTab selects the preceding tab, wrapping around.
func (w *Workspace) PrevTab() *Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = (w.current - 1 + len(w.tabs)) % len(w.tabs)
	return w.tabs[w.current]
}

// SplitPane splits the pane in whatever tab holds it, seeding the new
// pane's startup directory from the target session's current working
// directory so siblings inherit where the user actually is rather than a
// fixed default. Returns the created pane's ID, or false when the target
// is unknown or the same-direction sibling cap is reached.
func (w *Workspace) SplitPane(target layout.PaneID, dir layout.Direction) (layout.PaneID, bool) {
	seed := w.seedDir(target)

	w.mu.Lock()
	defer w.mu.Unlock()

	tab := w.findTabLocked(target)
	if tab == nil {
		return 0, false
	}
	newRoot, created := layout.SplitCapped(w.alloc, tab.Root, target, dir, seed, w.splitCap)
	if created == nil {
		return 0, false
	}
	tab.Root = newRoot
	tab.Active = created.ID
	w.logger.Debug("pane split", "tab_id", tab.ID, "target", uint64(target), "created", uint64(created.ID), "dir", dir.String())
	return created.ID, true
}

// seedDir resolves the startup directory for a pane split off target.
func (w *Workspace) seedDir(target layout.PaneID) string {
	if w.registry != nil {
		if cwd, ok := w.registry.WorkingDirectory(target); ok {
			return cwd
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if tab := w.findTabLocked(target); tab != nil {
		if pane := layout.FindPane(tab.Root, target); pane != nil {
			return pane.StartupDir
		}
	}
	return ""
}

// NeedsConfirm reports whether closing the pane should be confirmed first:
// true when the pane's session produced output within the idle threshold,
// which usually means a live foreground process.
func (w *Workspace) NeedsConfirm(target layout.PaneID) bool {
	return w.tracker != nil && w.tracker.IsActive(target)
}

// ClosePane removes the pane from its tab and releases its session.
// Refused (returning false) for a tab's last pane and for unknown panes;
// the tab keeps its original single pane. The caller is responsible for
// confirmation; see NeedsConfirm.
func (w *Workspace) ClosePane(target layout.PaneID) bool {
	w.mu.Lock()
	tab := w.findTabLocked(target)
	if tab == nil {
		w.mu.Unlock()
		return false
	}
	if layout.CountPanes(tab.Root) <= 1 {
		w.mu.Unlock()
		return false
	}

	if tab.Active == target {
		tab.Active = layout.NextPane(tab.Root, target)
	}
	newRoot := layout.Close(tab.Root, target)
	if newRoot == nil {
		// Unreachable given the pane-count check, but never let a tab
		// lose its tree.
		w.mu.Unlock()
		return false
	}
	tab.Root = newRoot
	w.mu.Unlock()

	w.releasePane(target)
	w.logger.Debug("pane closed", "tab_id", tab.ID, "pane_id", uint64(target))
	return true
}

// CloseTab removes the tab and releases every session in it. Closing the
// sole tab is refused.
func (w *Workspace) CloseTab(id string) bool {
	w.mu.Lock()
	if len(w.tabs) <= 1 {
		w.mu.Unlock()
		return false
	}
	idx := -1
	for i, tab := range w.tabs {
		if tab.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return false
	}
	tab := w.tabs[idx]
	panes := layout.FindAllPanes(tab.Root)
	w.tabs = append(w.tabs[:idx], w.tabs[idx+1:]...)
	if w.current >= len(w.tabs) {
		w.current = len(w.tabs) - 1
	}
	w.mu.Unlock()

	for _, pane := range panes {
		w.releasePane(pane.ID)
	}
	w.logger.Debug("tab closed", "tab_id", id, "panes", len(panes))
	return true
}

func (w *Workspace) releasePane(id layout.PaneID) {
	if w.registry != nil {
		w.registry.Release(id)
	}
	if w.tracker != nil {
		w.tracker.Forget(id)
	}
}

// FocusNext moves the current tab's focus to the next pane in the
// canonical depth-first order, wrapping around. A no-op with one pane.
func (w *Workspace) FocusNext() layout.PaneID {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab := w.tabs[w.current]
	tab.Active = layout.NextPane(tab.Root, tab.Active)
	return tab.Active
}

// FocusPrev moves the current tab's focus to the previous pane in the
// canonical depth-first order, wrapping around. A no-op with one pane.
func (w *Workspace) FocusPrev() layout.PaneID {
	w.mu.Lock()
	defer w.mu.Unlock()
	tab := w.tabs[w.current]
	tab.Active = layout.PrevPane(tab.Root, tab.Active)
	return tab.Active
}

// FocusPane makes the pane active, selecting its tab if necessary.
func (w *Workspace) FocusPane(target layout.PaneID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, tab := range w.tabs {
		if layout.FindPane(tab.Root, target) != nil {
			w.current = i
			tab.Active = target
			return true
		}
	}
	return false
}

// ActivePane returns the current tab's active pane ID.
func (w *Workspace) ActivePane() layout.PaneID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tabs[w.current].Active
}

func (w *Workspace) findTabLocked(target layout.PaneID) *Tab {
	for _, tab := range w.tabs {
		if layout.FindPane(tab.Root, target) != nil {
			return tab
		}
	}
	return nil
}
