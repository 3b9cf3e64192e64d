// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lslove10010/argonode/lib/launch"
)

// tunnelProcess is the tunnel client as a restartable process. It
// implements tunnel.Client.
type tunnelProcess struct {
	launcher *launch.Launcher

	// spec is the first launch. restartSpec, when set, replaces it for
	// every later Start: discovery only restarts the client to get a
	// log to scan, so restarts must use the log-writing arguments
	// whatever the first launch used.
	spec        launch.Spec
	restartSpec launch.Spec
	stopTimeout time.Duration

	mu     sync.Mutex
	handle *launch.Handle
	starts int
}

func (p *tunnelProcess) Start() error {
	p.mu.Lock()
	spec := p.spec
	if p.starts > 0 && p.restartSpec.Path != "" {
		spec = p.restartSpec
	}
	p.mu.Unlock()

	handle, err := p.launcher.Start(spec)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.handle = handle
	p.starts++
	p.mu.Unlock()
	return nil
}

// Stop kills the current process group and waits for it to be reaped,
// up to stopTimeout.
func (p *tunnelProcess) Stop() error {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()
	if handle == nil {
		return nil
	}

	if err := handle.Kill(); err != nil {
		return err
	}
	timeout := p.stopTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := handle.Wait(ctx); err != nil {
		return fmt.Errorf("tunnel client pid %d still running after kill: %w", handle.PID(), err)
	}
	return nil
}
