package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// foregroundPID returns the most recently spawned child of the shell, which
// is the best guess for its foreground process. Returns 0 when the shell
// has no children or pgrep fails.
func foregroundPID(ctx context.Context, shellPID int) int {
	out, err := exec.CommandContext(ctx, "pgrep", "-P", strconv.Itoa(shellPID)).Output()
	if err != nil {
		return 0
	}
	last := 0
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if pid, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			last = pid
		}
	}
	return last
}

// cwdOfPID resolves the working directory of a process. On Linux this is a
// procfs readlink; elsewhere it falls back to lsof.
func cwdOfPID(ctx context.Context, pid int) (string, error) {
	if runtime.GOOS == "linux" {
		path, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCwdUnavailable, err)
		}
		return path, nil
	}
	return cwdViaLsof(ctx, pid)
}

// cwdViaLsof asks lsof for the cwd file descriptor of the process. The -Fn
// flag produces machine-readable output where the path line is prefixed
// with "n".
func cwdViaLsof(ctx context.Context, pid int) (string, error) {
	out, err := exec.CommandContext(ctx, "lsof", "-a", "-d", "cwd", "-p", strconv.Itoa(pid), "-Fn").Output()
	if err != nil {
		return "", fmt.Errorf("%w: lsof: %v", ErrCwdUnavailable, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if path, ok := strings.CutPrefix(line, "n"); ok && path != "" {
			return path, nil
		}
	}
	return "", ErrCwdUnavailable
}
