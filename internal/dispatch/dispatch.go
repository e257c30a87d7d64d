// Package dispatch sends multi-step input sequences to pane sessions. A
// sequence is a strictly ordered list of steps for one pane: each step is
// written to the session's backend, then the runner waits for the pane to
// settle back to idle before sending the next. Sequences for distinct
// panes run concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/mosaicterm/mosaic/internal/activity"
	"github.com/mosaicterm/mosaic/internal/layout"
	"github.com/mosaicterm/mosaic/internal/logging"
)

// DefaultWaitCeiling bounds how long a single step may stay active before
// the sequence is abandoned.
const DefaultWaitCeiling = 10 * time.Minute

// ErrNoSession is returned when a sequence targets a pane without a
// running session.
var ErrNoSession = errors.New("dispatch: pane has no session")

// Sequence is an ordered list of input steps for one pane.
type Sequence struct {
	Pane  layout.PaneID
	Steps []string
}

// Sessions is the slice of the session registry the runner needs.
type Sessions interface {
	WriteInput(paneID layout.PaneID, data []byte)
	Has(paneID layout.PaneID) bool
}

// Runner executes sequences against live sessions, pacing steps by the
// pane's activity signal.
type Runner struct {
	sessions Sessions
	tracker  *activity.Tracker
	logger   *logging.Logger
	ceiling  time.Duration
}

// Config holds options for creating a Runner.
type Config struct {
	Sessions Sessions
	Tracker  *activity.Tracker
	Logger   *logging.Logger
	// WaitCeiling bounds the idle wait per step. Zero selects the default.
	WaitCeiling time.Duration
}

// New creates a Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	ceiling := cfg.WaitCeiling
	if ceiling <= 0 {
		ceiling = DefaultWaitCeiling
	}
	return &Runner{
		sessions: cfg.Sessions,
		tracker:  cfg.Tracker,
		logger:   logger.WithComponent("dispatch"),
		ceiling:  ceiling,
	}
}

// Run executes one sequence. Each step is written only after the pane has
// gone idle following the previous step. The step's output reaches the
// tracker asynchronously, so the wait is anchored to the write: it does
// not complete until output observed after the write has settled, or a
// poll interval passes with no output at all. Returns on context
// cancellation or when a step's wait exceeds the ceiling.
func (r *Runner) Run(ctx context.Context, seq Sequence) error {
	if !r.sessions.Has(seq.Pane) {
		return fmt.Errorf("%w: pane %d", ErrNoSession, seq.Pane)
	}
	for i, step := range seq.Steps {
		r.logger.Debug("dispatching step", "pane_id", uint64(seq.Pane), "step", i+1, "total", len(seq.Steps))
		r.sessions.WriteInput(seq.Pane, []byte(step))
		if i == len(seq.Steps)-1 {
			break
		}
		if err := r.tracker.WaitSettled(ctx, seq.Pane, r.ceiling); err != nil {
			return fmt.Errorf("waiting after step %d of pane %d: %w", i+1, seq.Pane, err)
		}
	}
	return nil
}

// RunAll executes sequences concurrently, one goroutine per sequence.
// Steps within a sequence stay strictly ordered. The first error cancels
// the remaining sequences and is returned, joined with any others that
// completed concurrently.
func (r *Runner) RunAll(ctx context.Context, seqs []Sequence) error {
	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	for _, seq := range seqs {
		p.Go(func(ctx context.Context) error {
			return r.Run(ctx, seq)
		})
	}
	return p.Wait()
}
