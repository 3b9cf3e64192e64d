// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Spec describes a process to start.
type Spec struct {
	// Name labels the process in logs, e.g. "engine" or "tunnel".
	Name string

	// Path is the executable.
	Path string

	Args []string

	// Dir is the working directory. Empty inherits the launcher's.
	Dir string

	// Output, if set, receives the process's stdout and stderr
	// (appended). Otherwise both are discarded.
	Output string
}

// Launcher starts processes and remembers them for KillAll.
type Launcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	handles []*Handle
}

// NewLauncher returns a Launcher that logs through logger.
func NewLauncher(logger *slog.Logger) *Launcher {
	return &Launcher{logger: logger}
}

// Start launches spec in a new session and returns without waiting for
// it to exit.
func (l *Launcher) Start(spec Spec) (*Handle, error) {
	command := exec.Command(spec.Path, spec.Args...)
	command.Dir = spec.Dir
	command.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	var output *os.File
	if spec.Output != "" {
		file, err := os.OpenFile(spec.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening output for %s: %w", spec.Name, err)
		}
		output = file
		command.Stdout = file
		command.Stderr = file
	}

	if err := command.Start(); err != nil {
		if output != nil {
			output.Close()
		}
		return nil, fmt.Errorf("starting %s: %w", spec.Name, err)
	}
	// The child holds its own copy of the descriptor.
	if output != nil {
		output.Close()
	}

	handle := &Handle{
		spec:    spec,
		pid:     command.Process.Pid,
		started: time.Now(),
		done:    make(chan struct{}),
		logger:  l.logger,
	}
	go handle.reap(command)

	l.mu.Lock()
	l.handles = append(l.handles, handle)
	l.mu.Unlock()

	l.logger.Info("process started", "name", spec.Name, "pid", handle.pid, "path", spec.Path)
	return handle, nil
}

// KillAll kills every process this launcher started that is still
// running and waits up to timeout for each to be reaped.
func (l *Launcher) KillAll(timeout time.Duration) {
	l.mu.Lock()
	handles := append([]*Handle(nil), l.handles...)
	l.mu.Unlock()

	for _, handle := range handles {
		if !handle.Alive() {
			continue
		}
		if err := handle.Kill(); err != nil {
			l.logger.Warn("killing process", "name", handle.spec.Name, "pid", handle.pid, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := handle.Wait(ctx); err != nil {
			l.logger.Warn("process did not exit after kill", "name", handle.spec.Name, "pid", handle.pid)
		}
		cancel()
	}
}

// Handle refers to one started process.
type Handle struct {
	spec    Spec
	pid     int
	started time.Time
	logger  *slog.Logger

	done     chan struct{}
	exitCode int
}

// Name returns the label from the Spec.
func (h *Handle) Name() string { return h.spec.Name }

// PID returns the process ID, which is also its process group ID.
func (h *Handle) PID() int { return h.pid }

// Started returns when the process was started.
func (h *Handle) Started() time.Time { return h.started }

// Done is closed once the process has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Alive reports whether the process has not yet exited.
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit status after Done is closed; -1 means the
// process was terminated by a signal or could not be waited for.
func (h *Handle) ExitCode() int {
	<-h.done
	return h.exitCode
}

// Kill sends SIGKILL to the process group. Killing a process that has
// already exited is not an error.
func (h *Handle) Kill() error {
	if !h.Alive() {
		return nil
	}
	err := unix.Kill(-h.pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return fmt.Errorf("killing %s (pgid %d): %w", h.spec.Name, h.pid, err)
}

// Wait blocks until the process exits or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) reap(command *exec.Cmd) {
	err := command.Wait()
	h.exitCode = 0
	if err != nil {
		h.exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.exitCode = exitErr.ExitCode()
		}
	}
	close(h.done)
	h.logger.Info("process exited",
		"name", h.spec.Name,
		"pid", h.pid,
		"exit_code", h.exitCode,
		"uptime", time.Since(h.started).Round(time.Millisecond),
	)
}
