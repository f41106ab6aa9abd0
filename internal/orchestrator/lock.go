package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDLock enforces spec.md §5's "single in-flight run per process"
// constraint: the token cache directory is the only shared mutable
// state, and two concurrent runs targeting the same network's token
// file would race. There's no ready-made library for this in the
// example pack, so it's built directly on os/syscall — a PID file is a
// primitive, not a concern any of the pack's dependencies model.
type PIDLock struct {
	path string
}

func NewPIDLock(path string) *PIDLock {
	return &PIDLock{path: path}
}

// Acquire fails if another live process already holds the lock; a PID
// file pointing at a dead process is treated as stale and reclaimed.
func (l *PIDLock) Acquire() error {
	if data, err := os.ReadFile(l.path); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && processAlive(pid) {
			return fmt.Errorf("orchestrator: another run is already in flight (pid %d, lock %s)", pid, l.path)
		}
	}
	return os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lock file. Safe to call even if Acquire failed.
func (l *PIDLock) Release() error {
	// A lock file held by another process is left in place.
	if data, err := os.ReadFile(l.path); err == nil && strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("orchestrator: release lock %s: %w", l.path, err)
	}
	return nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds; signal 0 probes liveness
	// without actually signaling the process.
	return proc.Signal(syscall.Signal(0)) == nil
}
