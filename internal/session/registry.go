package session

import (
	"context"
	"sync"
	"time"

	"github.com/mosaicterm/mosaic/internal/activity"
	"github.com/mosaicterm/mosaic/internal/backend"
	"github.com/mosaicterm/mosaic/internal/layout"
	"github.com/mosaicterm/mosaic/internal/logging"
)

// DefaultCwdTimeout bounds working-directory queries against the backend.
const DefaultCwdTimeout = 2 * time.Second

// Surface is a swappable output sink for one pane's session. The registry
// attaches and detaches surfaces; it never destroys them, since each
// surface is owned by the view that created it.
type Surface interface {
	// Output receives a chunk of raw output bytes.
	Output(data []byte)
	// Message receives an inline status or error line, for example a
	// backend start failure.
	Message(text string)
	// Exited signals that the session's process has exited.
	Exited()
}

// Session is one live entry in the registry: the pane it belongs to, the
// backend handle (set once, asynchronously, possibly never on backend
// failure), and bookkeeping the registry maintains on its behalf.
type Session struct {
	paneID  layout.PaneID
	handle  backend.Handle
	surface Surface
	lastCwd string
	failure string
	exited  bool
}

// PaneID returns the pane this session is bound to.
func (s *Session) PaneID() layout.PaneID { return s.paneID }

// Registry maps pane IDs to sessions. It is the sole writer of session
// entries; all mutations happen behind one mutex, and asynchronous results
// are written back through the same locked entry points.
type Registry struct {
	mu       sync.Mutex
	sessions map[layout.PaneID]*Session

	backend    backend.Backend
	tracker    *activity.Tracker
	logger     *logging.Logger
	rows, cols int
	cwdTimeout time.Duration
}

// Config holds options for creating a Registry.
type Config struct {
	Backend backend.Backend
	// Tracker, when set, records activity for every output chunk.
	Tracker *activity.Tracker
	Logger  *logging.Logger
	// Rows and Cols are the initial dimensions requested for new
	// sessions. Zero values select the backend defaults.
	Rows, Cols int
	// CwdTimeout bounds WorkingDirectory queries. Zero selects
	// DefaultCwdTimeout.
	CwdTimeout time.Duration
}

// NewRegistry creates a session registry.
func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	timeout := cfg.CwdTimeout
	if timeout <= 0 {
		timeout = DefaultCwdTimeout
	}
	return &Registry{
		sessions:   make(map[layout.PaneID]*Session),
		backend:    cfg.Backend,
		tracker:    cfg.Tracker,
		logger:     logger.WithComponent("registry"),
		rows:       cfg.Rows,
		cols:       cfg.Cols,
		cwdTimeout: timeout,
	}
}

// Acquire returns the pane's session, creating it if absent. The entry is
// registered synchronously; the backend handle is requested asynchronously
// and attached on success. On backend failure the session stays handle-less
// and the failure is surfaced as an inline message on the attached display,
// never returned to the caller. Failure is terminal for this session
// instance: there is no automatic retry until the pane is closed and a new
// one created in its place.
func (r *Registry) Acquire(paneID layout.PaneID, startupDir string) *Session {
	r.mu.Lock()
	if s, ok := r.sessions[paneID]; ok {
		r.mu.Unlock()
		return s
	}
	s := &Session{paneID: paneID, lastCwd: startupDir}
	r.sessions[paneID] = s
	r.mu.Unlock()

	r.logger.Debug("session registered", "pane_id", uint64(paneID), "startup_dir", startupDir)
	go r.connect(paneID, startupDir)
	return s
}

// connect requests a backend handle and attaches it to the session. Handle
// acquisition has no cancellation primitive, so after it resolves the
// registry re-checks that the pane is still registered; a handle resolved
// for a closed pane is killed immediately rather than attached.
func (r *Registry) connect(paneID layout.PaneID, startupDir string) {
	handle, err := r.backend.Create(context.Background(), r.rows, r.cols, startupDir)

	r.mu.Lock()
	s, ok := r.sessions[paneID]
	if !ok {
		r.mu.Unlock()
		if handle != nil {
			_ = handle.Kill()
			r.logger.Debug("released orphan handle for closed pane", "pane_id", uint64(paneID))
		}
		return
	}
	if err != nil {
		s.failure = "failed to start session: " + err.Error()
		surface := s.surface
		message := s.failure
		r.mu.Unlock()
		r.logger.Warn("backend unavailable", "pane_id", uint64(paneID), "error", err)
		if surface != nil {
			surface.Message(message)
		}
		return
	}
	s.handle = handle
	r.mu.Unlock()

	r.logger.Debug("backend handle attached", "pane_id", uint64(paneID))
	go r.pump(paneID, handle)
}

// pump routes a handle's event stream to whichever surface is currently
// attached, recording activity along the way. It exits when the handle's
// event channel closes.
func (r *Registry) pump(paneID layout.PaneID, h backend.Handle) {
	for ev := range h.Events() {
		switch ev.Kind {
		case backend.EventOutput:
			if r.tracker != nil {
				r.tracker.Record(paneID)
			}
			if surface := r.currentSurface(paneID); surface != nil {
				surface.Output(ev.Data)
			}

		case backend.EventError:
			r.logger.Warn("session stream error", "pane_id", uint64(paneID), "error", ev.Message)
			if surface := r.currentSurface(paneID); surface != nil {
				surface.Message("session error: " + ev.Message)
			}

		case backend.EventExit:
			r.mu.Lock()
			s, ok := r.sessions[paneID]
			var surface Surface
			if ok && s.handle == h {
				s.handle = nil
				s.exited = true
				surface = s.surface
			}
			r.mu.Unlock()
			if surface != nil {
				surface.Exited()
			}
		}
	}
}

func (r *Registry) currentSurface(paneID layout.PaneID) Surface {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[paneID]; ok {
		return s.surface
	}
	return nil
}

// AttachDisplay binds surface as the session's current output sink. Any
// previously bound surface is detached, not destroyed. This is how a pane
// moves between view containers without losing its backend session: each
// remount attaches a fresh surface. A pending failure or exit is replayed
// onto the new surface so a remounted pane still shows its state. Unknown
// panes are a no-op.
func (r *Registry) AttachDisplay(paneID layout.PaneID, surface Surface) {
	r.mu.Lock()
	s, ok := r.sessions[paneID]
	if !ok {
		r.mu.Unlock()
		return
	}
	s.surface = surface
	failure := s.failure
	exited := s.exited
	r.mu.Unlock()

	if surface == nil {
		return
	}
	if failure != "" {
		surface.Message(failure)
	}
	if exited {
		surface.Exited()
	}
}

// DetachDisplay clears the session's display binding if it currently is
// surface. Called on container unmount; the session itself is untouched.
func (r *Registry) DetachDisplay(paneID layout.PaneID, surface Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[paneID]; ok && s.surface == surface {
		s.surface = nil
	}
}

// Release terminates the session's backend handle, clears the display
// binding, and removes the registry entry. Invoked only on explicit pane
// close, never on container unmount. Unknown panes are a no-op.
func (r *Registry) Release(paneID layout.PaneID) {
	r.mu.Lock()
	s, ok := r.sessions[paneID]
	if ok {
		delete(r.sessions, paneID)
		s.surface = nil
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	if s.handle != nil {
		if err := s.handle.Kill(); err != nil {
			r.logger.Warn("failed to kill session", "pane_id", uint64(paneID), "error", err)
		}
	}
	if r.tracker != nil {
		r.tracker.Forget(paneID)
	}
	r.logger.Debug("session released", "pane_id", uint64(paneID))
}

// WorkingDirectory returns the session's working directory, best effort.
// A live backend is queried and the result cached as the last known
// directory; on query failure the cached value is returned. The second
// result is false when the directory is unknown. Never returns an error:
// callers use this to seed startup directories and fall back to defaults.
func (r *Registry) WorkingDirectory(paneID layout.PaneID) (string, bool) {
	r.mu.Lock()
	s, ok := r.sessions[paneID]
	if !ok {
		r.mu.Unlock()
		return "", false
	}
	handle := s.handle
	last := s.lastCwd
	r.mu.Unlock()

	if handle == nil {
		return last, last != ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cwdTimeout)
	defer cancel()
	path, err := handle.Cwd(ctx)
	if err != nil {
		r.logger.Debug("working directory query failed", "pane_id", uint64(paneID), "error", err)
		return last, last != ""
	}

	r.mu.Lock()
	if s, ok := r.sessions[paneID]; ok {
		s.lastCwd = path
	}
	r.mu.Unlock()
	return path, true
}

// WriteInput forwards input bytes to the session's backend. A no-op for
// unknown panes and handle-less sessions.
func (r *Registry) WriteInput(paneID layout.PaneID, data []byte) {
	handle := r.currentHandle(paneID)
	if handle == nil {
		return
	}
	if err := handle.Write(data); err != nil {
		r.logger.Warn("failed to write input", "pane_id", uint64(paneID), "error", err)
	}
}

// ResizeSession forwards new terminal dimensions to the session's backend.
// A no-op for unknown panes and handle-less sessions.
func (r *Registry) ResizeSession(paneID layout.PaneID, rows, cols int) {
	handle := r.currentHandle(paneID)
	if handle == nil {
		return
	}
	if err := handle.Resize(rows, cols); err != nil {
		r.logger.Warn("failed to resize session", "pane_id", uint64(paneID), "error", err)
	}
}

func (r *Registry) currentHandle(paneID layout.PaneID) backend.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[paneID]; ok {
		return s.handle
	}
	return nil
}

// Has reports whether a session entry exists for the pane.
func (r *Registry) Has(paneID layout.PaneID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[paneID]
	return ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Ready reports whether the pane's session has a live backend handle.
func (r *Registry) Ready(paneID layout.PaneID) bool {
	return r.currentHandle(paneID) != nil
}

// Failure returns the session's recorded backend failure message, if any.
func (r *Registry) Failure(paneID layout.PaneID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[paneID]; ok && s.failure != "" {
		return s.failure, true
	}
	return "", false
}

// ReleaseAll releases every registered session. Called on shutdown.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	ids := make([]layout.PaneID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Release(id)
	}
}
