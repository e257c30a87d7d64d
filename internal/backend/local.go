package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/mosaicterm/mosaic/internal/logging"
)

// DefaultShell is the fallback when $SHELL is unset.
const DefaultShell = "/bin/zsh"

const outputBufSize = 4096

// Local spawns login shells on a local pty.
type Local struct {
	shell  string
	logger *logging.Logger
}

// LocalConfig holds options for the local backend.
type LocalConfig struct {
	// Shell overrides the spawned shell. Empty means $SHELL, falling back
	// to DefaultShell.
	Shell  string
	Logger *logging.Logger
}

// NewLocal creates a local pty backend.
func NewLocal(cfg LocalConfig) *Local {
	shell := cfg.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = DefaultShell
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Local{shell: shell, logger: logger.WithComponent("backend")}
}

// Create spawns a login shell on a new pty and starts streaming its
// output. cwd may be empty, in which case the shell starts in $HOME.
func (b *Local) Create(ctx context.Context, rows, cols int, cwd string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	cmd := exec.Command(b.shell, "-l")
	if cwd != "" {
		cmd.Dir = cwd
	} else if home, err := os.UserHomeDir(); err == nil {
		cmd.Dir = home
	}
	cmd.Env = sessionEnv()

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start shell %s: %w", b.shell, err)
	}

	h := &localHandle{
		ptmx:   ptmx,
		cmd:    cmd,
		events: make(chan Event, 64),
		logger: b.logger.With("pid", cmd.Process.Pid),
	}
	go h.readLoop()

	b.logger.Debug("session created", "shell", b.shell, "pid", cmd.Process.Pid, "cwd", cmd.Dir)
	return h, nil
}

// sessionEnv builds a minimal environment for the shell: the terminal type
// plus a passthrough of the identity and locale variables.
func sessionEnv() []string {
	env := []string{"TERM=xterm-256color"}
	for _, key := range []string{"HOME", "USER", "PATH", "LANG"} {
		if value := os.Getenv(key); value != "" {
			env = append(env, key+"="+value)
		}
	}
	return env
}

type localHandle struct {
	ptmx   *os.File
	cmd    *exec.Cmd
	events chan Event
	logger *logging.Logger

	mu        sync.Mutex
	closed    bool
	closePtmx sync.Once
}

func (h *localHandle) readLoop() {
	buf := make([]byte, outputBufSize)
	for {
		n, err := h.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			h.events <- Event{Kind: EventOutput, Data: data}
		}
		if err != nil {
			if !isExpectedReadError(err) {
				h.events <- Event{Kind: EventError, Message: err.Error()}
			}
			break
		}
	}

	// Reap the child before reporting exit so the pid is gone by the time
	// consumers observe the event. The master fd must be released here too:
	// Kill is a no-op on an already-closed handle, so nothing else would
	// close it when the shell exits on its own.
	_ = h.cmd.Wait()
	h.closeMaster()
	h.markClosed()
	h.events <- Event{Kind: EventExit}
	close(h.events)
	h.logger.Debug("session exited")
}

// closeMaster closes the pty master exactly once. Both the read loop and
// Kill reach it, whichever ends the session first.
func (h *localHandle) closeMaster() {
	h.closePtmx.Do(func() {
		if err := h.ptmx.Close(); err != nil {
			h.logger.Warn("failed to close pty", "error", err)
		}
	})
}

// isExpectedReadError reports whether a pty read error is the normal end of
// stream rather than a fault worth surfacing. Linux returns EIO from the
// master side once the child exits.
func isExpectedReadError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, syscall.EIO)
}

func (h *localHandle) markClosed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *localHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Write sends input bytes to the shell.
func (h *localHandle) Write(data []byte) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	if _, err := h.ptmx.Write(data); err != nil {
		return fmt.Errorf("failed to write to session: %w", err)
	}
	return nil
}

// Resize updates the pty dimensions.
func (h *localHandle) Resize(rows, cols int) error {
	if h.isClosed() {
		return ErrHandleClosed
	}
	ws := &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	if err := pty.Setsize(h.ptmx, ws); err != nil {
		return fmt.Errorf("failed to resize session: %w", err)
	}
	return nil
}

// Kill terminates the shell. The read loop observes the closed pty and
// emits the exit event.
func (h *localHandle) Kill() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	if h.cmd.Process != nil {
		if err := h.cmd.Process.Kill(); err != nil {
			h.logger.Warn("failed to kill session process", "error", err)
		}
	}
	h.closeMaster()
	return nil
}

// Cwd returns the working directory of the shell's foreground process,
// falling back to the shell itself when no child is running.
func (h *localHandle) Cwd(ctx context.Context) (string, error) {
	if h.isClosed() {
		return "", ErrHandleClosed
	}
	shellPID := h.cmd.Process.Pid
	pid := foregroundPID(ctx, shellPID)
	if pid == 0 {
		pid = shellPID
	}
	return cwdOfPID(ctx, pid)
}

func (h *localHandle) Events() <-chan Event {
	return h.events
}
