// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"errors"
	"io/fs"
	"os"

	"github.com/lslove10010/argonode/lib/artifact"
	"github.com/lslove10010/argonode/lib/clock"
	"github.com/lslove10010/argonode/lib/config"
)

// ScheduleCleanup arranges for the binaries in specs, the engine config
// and the tunnel log to be removed after Timing.CleanupDelay. Tunnel
// credentials, the subscription document and the node list are kept.
//
// Discovery may still be restarting the tunnel client when the timer
// fires, so the tunnel binary is held back until discovery returns.
func (o *Orchestrator) ScheduleCleanup(specs []artifact.Spec) *clock.Timer {
	paths := []string{
		o.config.Path(config.BootLogFile),
		o.config.Path(config.EngineConfigFile),
	}
	var tunnelPath string
	for _, spec := range specs {
		if spec.Role == artifact.RoleTunnel {
			tunnelPath = spec.Path
			continue
		}
		paths = append(paths, spec.Path)
	}

	return o.clock.AfterFunc(o.config.Timing.CleanupDelay, func() {
		removed := 0
		for _, path := range paths {
			if o.removeTransient(path) {
				removed++
			}
		}
		o.logger.Info("transient files cleaned up", "removed", removed)
		if tunnelPath == "" {
			return
		}
		select {
		case <-o.discovered:
			o.removeTransient(tunnelPath)
		default:
			o.logger.Info("tunnel binary kept until discovery ends", "path", tunnelPath)
			go func() {
				<-o.discovered
				if o.removeTransient(tunnelPath) {
					o.logger.Info("tunnel binary cleaned up", "path", tunnelPath)
				}
			}()
		}
	})
}

func (o *Orchestrator) removeTransient(path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true
	case !errors.Is(err, fs.ErrNotExist):
		o.logger.Warn("cleanup", "path", path, "error", err)
	}
	return false
}
