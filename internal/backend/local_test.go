package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestNewLocalShellFallback(t *testing.T) {
	t.Setenv("SHELL", "")
	b := NewLocal(LocalConfig{})
	if b.shell != DefaultShell {
		t.Errorf("shell = %q, want %q", b.shell, DefaultShell)
	}

	b = NewLocal(LocalConfig{Shell: "/bin/sh"})
	if b.shell != "/bin/sh" {
		t.Errorf("shell = %q, want /bin/sh", b.shell)
	}

	t.Setenv("SHELL", "/usr/bin/fish")
	b = NewLocal(LocalConfig{})
	if b.shell != "/usr/bin/fish" {
		t.Errorf("shell = %q, want $SHELL value", b.shell)
	}
}

func TestSessionEnvCarriesTerm(t *testing.T) {
	env := sessionEnv()
	found := false
	for _, kv := range env {
		if kv == "TERM=xterm-256color" {
			found = true
		}
		if strings.HasPrefix(kv, "TERM=") && kv != "TERM=xterm-256color" {
			t.Errorf("unexpected TERM entry %q", kv)
		}
	}
	if !found {
		t.Error("sessionEnv() is missing TERM=xterm-256color")
	}
}

func TestIsExpectedReadError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"eof", io.EOF, true},
		{"eio", syscall.EIO, true},
		{"wrapped eio", &os.PathError{Op: "read", Path: "/dev/ptmx", Err: syscall.EIO}, true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpectedReadError(tt.err); got != tt.want {
				t.Errorf("isExpectedReadError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCwdOfPIDSelf(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs cwd resolution is linux only")
	}
	want, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	got, err := cwdOfPID(context.Background(), os.Getpid())
	if err != nil {
		t.Fatalf("cwdOfPID(self) error: %v", err)
	}
	if got != want {
		t.Errorf("cwdOfPID(self) = %q, want %q", got, want)
	}
}

func TestExitedSessionReleasesPty(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("fd accounting via procfs is linux only")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	before := openFDCount(t)

	b := NewLocal(LocalConfig{Shell: "/bin/sh"})
	h, err := b.Create(context.Background(), 24, 80, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.Write([]byte("exit\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	waitExit := func() {
		deadline := time.After(5 * time.Second)
		for {
			select {
			case ev, ok := <-h.Events():
				if !ok || ev.Kind == EventExit {
					return
				}
			case <-deadline:
				t.Fatal("timed out waiting for the shell to exit")
			}
		}
	}
	waitExit()

	// Kill on an exited session must stay a no-op without holding the
	// master fd open.
	if err := h.Kill(); err != nil {
		t.Fatalf("Kill after exit: %v", err)
	}

	if after := openFDCount(t); after > before {
		t.Errorf("open fds = %d after exit and Kill, was %d before the session", after, before)
	}
}

func openFDCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("reading /proc/self/fd: %v", err)
	}
	return len(entries)
}

func TestCreateRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewLocal(LocalConfig{Shell: "/bin/sh"})
	if _, err := b.Create(ctx, 24, 80, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Create with cancelled context = %v, want context.Canceled", err)
	}
}
