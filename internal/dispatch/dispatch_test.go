package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicterm/mosaic/internal/activity"
	"github.com/mosaicterm/mosaic/internal/layout"
)

type recordingSessions struct {
	mu     sync.Mutex
	writes map[layout.PaneID][]string
	times  map[layout.PaneID][]time.Time
	known  map[layout.PaneID]bool

	// echo, when set, runs in a goroutine after each write, standing in
	// for the output a real session pumps back asynchronously.
	echo func(layout.PaneID)
}

func newRecordingSessions(panes ...layout.PaneID) *recordingSessions {
	s := &recordingSessions{
		writes: make(map[layout.PaneID][]string),
		times:  make(map[layout.PaneID][]time.Time),
		known:  make(map[layout.PaneID]bool),
	}
	for _, p := range panes {
		s.known[p] = true
	}
	return s
}

func (s *recordingSessions) WriteInput(paneID layout.PaneID, data []byte) {
	s.mu.Lock()
	s.writes[paneID] = append(s.writes[paneID], string(data))
	s.times[paneID] = append(s.times[paneID], time.Now())
	echo := s.echo
	s.mu.Unlock()
	if echo != nil {
		go echo(paneID)
	}
}

func (s *recordingSessions) Has(paneID layout.PaneID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known[paneID]
}

func (s *recordingSessions) written(paneID layout.PaneID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes[paneID]))
	copy(out, s.writes[paneID])
	return out
}

func (s *recordingSessions) writtenAt(paneID layout.PaneID) []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.times[paneID]))
	copy(out, s.times[paneID])
	return out
}

func fastTracker() *activity.Tracker {
	return activity.New(activity.Config{
		IdleThreshold: 20 * time.Millisecond,
		PollInterval:  2 * time.Millisecond,
	})
}

func TestRunSendsStepsInOrder(t *testing.T) {
	pane := layout.PaneID(1)
	sessions := newRecordingSessions(pane)
	r := New(Config{Sessions: sessions, Tracker: fastTracker()})

	seq := Sequence{Pane: pane, Steps: []string{"first\n", "second\n", "third\n"}}
	if err := r.Run(context.Background(), seq); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := sessions.written(pane)
	if len(got) != 3 || got[0] != "first\n" || got[1] != "second\n" || got[2] != "third\n" {
		t.Fatalf("writes = %q", got)
	}
}

func TestRunWaitsForDelayedEcho(t *testing.T) {
	pane := layout.PaneID(1)
	sessions := newRecordingSessions(pane)
	tracker := activity.New(activity.Config{
		IdleThreshold: 20 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
	})
	r := New(Config{Sessions: sessions, Tracker: tracker})

	// The step's output takes a while to come back. The second step must
	// not be sent until that output has been observed and gone idle.
	var echoMu sync.Mutex
	var echoes []time.Time
	sessions.echo = func(id layout.PaneID) {
		time.Sleep(5 * time.Millisecond)
		tracker.Record(id)
		echoMu.Lock()
		echoes = append(echoes, time.Now())
		echoMu.Unlock()
	}

	seq := Sequence{Pane: pane, Steps: []string{"a", "b"}}
	if err := r.Run(context.Background(), seq); err != nil {
		t.Fatalf("Run: %v", err)
	}

	writes := sessions.writtenAt(pane)
	if len(writes) != 2 {
		t.Fatalf("writes = %q", sessions.written(pane))
	}
	echoMu.Lock()
	firstEcho := echoes[0]
	echoMu.Unlock()
	if !writes[1].After(firstEcho) {
		t.Fatal("second step sent before the first step's output came back")
	}
	if gap := writes[1].Sub(writes[0]); gap < 20*time.Millisecond {
		t.Fatalf("second step sent %v after the first, before its output settled", gap)
	}
}

func TestRunSilentStepProceedsAfterGrace(t *testing.T) {
	pane := layout.PaneID(1)
	sessions := newRecordingSessions(pane)
	r := New(Config{Sessions: sessions, Tracker: fastTracker(), WaitCeiling: 500 * time.Millisecond})

	// A step that echoes nothing must not stall the sequence until the
	// ceiling: one quiet poll interval is enough to move on.
	start := time.Now()
	seq := Sequence{Pane: pane, Steps: []string{"a", "b"}}
	if err := r.Run(context.Background(), seq); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := sessions.written(pane); len(got) != 2 {
		t.Fatalf("writes = %q", got)
	}
	if elapsed := time.Since(start); elapsed >= 100*time.Millisecond {
		t.Fatalf("silent sequence took %v", elapsed)
	}
}

func TestRunUnknownPane(t *testing.T) {
	r := New(Config{Sessions: newRecordingSessions(), Tracker: fastTracker()})

	err := r.Run(context.Background(), Sequence{Pane: 7, Steps: []string{"a"}})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestRunCeiling(t *testing.T) {
	pane := layout.PaneID(1)
	sessions := newRecordingSessions(pane)
	tracker := activity.New(activity.Config{
		IdleThreshold: 20 * time.Millisecond,
		PollInterval:  5 * time.Millisecond,
	})
	r := New(Config{Sessions: sessions, Tracker: tracker, WaitCeiling: 15 * time.Millisecond})

	// Keep the pane active past the ceiling.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				tracker.Record(pane)
			}
		}
	}()
	defer func() { close(stop); wg.Wait() }()

	err := r.Run(context.Background(), Sequence{Pane: pane, Steps: []string{"a", "b"}})
	if !errors.Is(err, activity.ErrWaitCeiling) {
		t.Fatalf("err = %v, want ErrWaitCeiling", err)
	}
	if got := sessions.written(pane); len(got) != 1 {
		t.Fatalf("writes after ceiling = %q, want only the first step", got)
	}
}

func TestRunCancellation(t *testing.T) {
	pane := layout.PaneID(1)
	sessions := newRecordingSessions(pane)
	tracker := activity.New(activity.Config{
		IdleThreshold: time.Hour,
		PollInterval:  20 * time.Millisecond,
	})
	r := New(Config{Sessions: sessions, Tracker: tracker})

	// Keep the pane active so the wait can only end via cancellation.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-time.After(2 * time.Millisecond):
				tracker.Record(pane)
			}
		}
	}()
	defer func() { close(stop); wg.Wait() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Run(ctx, Sequence{Pane: pane, Steps: []string{"a", "b"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunAllDistinctPanesConcurrently(t *testing.T) {
	p1, p2 := layout.PaneID(1), layout.PaneID(2)
	sessions := newRecordingSessions(p1, p2)
	r := New(Config{Sessions: sessions, Tracker: fastTracker()})

	seqs := []Sequence{
		{Pane: p1, Steps: []string{"a1", "a2"}},
		{Pane: p2, Steps: []string{"b1", "b2"}},
	}
	if err := r.RunAll(context.Background(), seqs); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if got := sessions.written(p1); len(got) != 2 || got[0] != "a1" || got[1] != "a2" {
		t.Fatalf("pane 1 writes = %q", got)
	}
	if got := sessions.written(p2); len(got) != 2 || got[0] != "b1" || got[1] != "b2" {
		t.Fatalf("pane 2 writes = %q", got)
	}
}

func TestRunAllPropagatesErrors(t *testing.T) {
	p1 := layout.PaneID(1)
	sessions := newRecordingSessions(p1)
	r := New(Config{Sessions: sessions, Tracker: fastTracker()})

	seqs := []Sequence{
		{Pane: p1, Steps: []string{"ok"}},
		{Pane: 99, Steps: []string{"never"}},
	}
	if err := r.RunAll(context.Background(), seqs); !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}
