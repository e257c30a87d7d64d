// Package activity records per-pane output activity and answers idle/active
// queries. Close confirmation uses it to detect a live foreground process
// before a destructive close, and sequential dispatch uses it to wait for a
// dispatched step to settle.
package activity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mosaicterm/mosaic/internal/layout"
)

// DefaultIdleThreshold is how long a pane must go without output before it
// counts as idle.
const DefaultIdleThreshold = 3000 * time.Millisecond

// DefaultPollInterval is the granularity of idle-wait polling.
const DefaultPollInterval = time.Second

// ErrWaitCeiling indicates an idle wait hit its hard ceiling before the
// pane went idle. A stuck pane must not block a sequence indefinitely.
var ErrWaitCeiling = errors.New("idle wait ceiling reached")

// Tracker records the last output timestamp per pane. Safe for concurrent
// use.
type Tracker struct {
	mu        sync.Mutex
	last      map[layout.PaneID]time.Time
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
}

// Config holds options for creating a Tracker. Zero values select the
// defaults.
type Config struct {
	// IdleThreshold is the no-output window after which a pane is idle.
	IdleThreshold time.Duration
	// PollInterval is the idle-wait polling granularity.
	PollInterval time.Duration
	// Now overrides the clock. Tests inject a fake here.
	Now func() time.Time
}

// New creates a Tracker with the given configuration.
func New(cfg Config) *Tracker {
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = DefaultIdleThreshold
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tracker{
		last:      make(map[layout.PaneID]time.Time),
		threshold: cfg.IdleThreshold,
		interval:  cfg.PollInterval,
		now:       cfg.Now,
	}
}

// Record stores the current time as the pane's last output timestamp.
// Called on every output chunk from the pane's backend stream.
func (t *Tracker) Record(id layout.PaneID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[id] = t.now()
}

// IsActive reports whether the pane produced output within the idle
// threshold. A pane with no recorded activity is not active.
func (t *Tracker) IsActive(id layout.PaneID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[id]
	if !ok {
		return false
	}
	return t.now().Sub(last) < t.threshold
}

// LastActivity returns the pane's last recorded output time, and whether
// any activity was recorded at all.
func (t *Tracker) LastActivity(id layout.PaneID) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[id]
	return last, ok
}

// Forget drops the pane's record. Called when the pane is closed.
func (t *Tracker) Forget(id layout.PaneID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, id)
}

// WaitIdle blocks until the pane goes idle, polling at the tracker's
// interval. It returns ctx.Err() if the context is cancelled and
// ErrWaitCeiling once the ceiling elapses, so a stuck pane cannot block
// the caller forever. A ceiling of zero or less waits with no ceiling.
func (t *Tracker) WaitIdle(ctx context.Context, id layout.PaneID, ceiling time.Duration) error {
	var deadline time.Time
	if ceiling > 0 {
		deadline = t.clockNow().Add(ceiling)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if !t.IsActive(id) {
			return nil
		}
		if !deadline.IsZero() && !t.clockNow().Before(deadline) {
			return ErrWaitCeiling
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitSettled blocks until a pane settles after input was just sent to
// it. Output echoes back asynchronously, so a pane that looks idle at the
// moment of the call may simply not have been observed yet: the wait only
// completes once output recorded after the call has gone idle again, or
// one poll interval passes with no output at all. Ceiling and
// cancellation behave as in WaitIdle.
func (t *Tracker) WaitSettled(ctx context.Context, id layout.PaneID, ceiling time.Duration) error {
	mark := t.clockNow()
	grace := mark.Add(t.interval)
	var deadline time.Time
	if ceiling > 0 {
		deadline = mark.Add(ceiling)
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		last, ok := t.LastActivity(id)
		if ok && !last.Before(mark) {
			if !t.IsActive(id) {
				return nil
			}
		} else if !t.clockNow().Before(grace) {
			return nil
		}
		if !deadline.IsZero() && !t.clockNow().Before(deadline) {
			return ErrWaitCeiling
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Tracker) clockNow() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now()
}
