package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// waitForEvent polls until an event satisfying match arrives.
func (c *collector) waitForEvent(t *testing.T, what string, match func(Event) bool) Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range c.snapshot() {
			if match(ev) {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; events: %+v", what, c.snapshot())
	return Event{}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(nil)
	t.Cleanup(m.Close)
	return m
}

func TestWatchRejectsMissingDir(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Watch(filepath.Join(t.TempDir(), "absent"), nil, func(Event) {}); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestWatchRejectsFile(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Watch(path, nil, func(Event) {}); err == nil {
		t.Fatalf("expected error when watching a file")
	}
}

func TestWatchIDsAreMonotonic(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()

	id1, err := m.Watch(dir, nil, func(Event) {})
	if err != nil {
		t.Fatal(err)
	}
	m.Unwatch(id1)
	id2, err := m.Watch(dir, nil, func(Event) {})
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Fatalf("id2 = %d, want > %d", id2, id1)
	}
}

func TestChangedCarriesContent(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	var c collector
	if _, err := m.Watch(dir, []string{"md"}, c.handle); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := c.waitForEvent(t, "changed event", func(ev Event) bool {
		return ev.Kind == Changed && ev.Path == path
	})
	if string(ev.Content) != "hello" {
		t.Fatalf("content = %q, want %q", ev.Content, "hello")
	}
}

func TestCreatedEvent(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	var c collector
	if _, err := m.Watch(dir, []string{"md"}, c.handle); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "new.md")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	c.waitForEvent(t, "created event", func(ev Event) bool {
		return ev.Kind == Created && ev.Path == path
	})
}

func TestExtensionFilter(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	var c collector
	if _, err := m.Watch(dir, []string{"MD"}, c.handle); err != nil {
		t.Fatal(err)
	}

	ignored := filepath.Join(dir, "skip.log")
	if err := os.WriteFile(ignored, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Uppercase filter still matches lowercase extensions.
	matched := filepath.Join(dir, "keep.md")
	if err := os.WriteFile(matched, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	c.waitForEvent(t, "matching file event", func(ev Event) bool {
		return ev.Path == matched
	})
	for _, ev := range c.snapshot() {
		if ev.Path == ignored {
			t.Fatalf("event for filtered file: %+v", ev)
		}
	}
}

func TestRemovedEvent(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.md")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var c collector
	if _, err := m.Watch(dir, []string{"md"}, c.handle); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	c.waitForEvent(t, "removed event", func(ev Event) bool {
		return ev.Kind == Removed && ev.Path == path
	})
}

func TestRecursiveWatchExtendsToNewSubdirs(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	var c collector
	if _, err := m.Watch(dir, []string{"md"}, c.handle); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a beat to pick up the new directory.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(sub, "inner.md")
	if err := os.WriteFile(path, []byte("deep"), 0o644); err != nil {
		t.Fatal(err)
	}

	c.waitForEvent(t, "event from new subdirectory", func(ev Event) bool {
		return ev.Path == path
	})
}

func TestUnwatchStopsDelivery(t *testing.T) {
	m := newTestManager(t)
	dir := t.TempDir()
	var c collector
	id, err := m.Watch(dir, nil, c.handle)
	if err != nil {
		t.Fatal(err)
	}

	if !m.Unwatch(id) {
		t.Fatalf("Unwatch(%d) = false", id)
	}
	if m.Unwatch(id) {
		t.Fatalf("second Unwatch(%d) = true", id)
	}

	if err := os.WriteFile(filepath.Join(dir, "after.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Fatalf("events after Unwatch: %+v", got)
	}
}

func TestCloseRefusesNewWatches(t *testing.T) {
	m := NewManager(nil)
	m.Close()
	if _, err := m.Watch(t.TempDir(), nil, func(Event) {}); err == nil {
		t.Fatalf("Watch succeeded on a closed manager")
	}
}
