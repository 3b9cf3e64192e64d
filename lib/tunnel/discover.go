// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/lslove10010/argonode/lib/clock"
)

// ErrDiscoveryFailed is returned when the hostname never appears in the
// log within the restart ceiling.
var ErrDiscoveryFailed = errors.New("tunnel hostname not found")

// controlPlaneHost appears in quick-tunnel logs but is not the
// assigned hostname.
const controlPlaneHost = "api.trycloudflare.com"

var hostPattern = regexp.MustCompile(`https?://([A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.trycloudflare\.com)`)

// ExtractHost returns the first quick-tunnel hostname in content, or ""
// when there is none.
func ExtractHost(content string) string {
	for _, match := range hostPattern.FindAllStringSubmatch(content, -1) {
		if match[1] != controlPlaneHost {
			return match[1]
		}
	}
	return ""
}

// Client is the running tunnel client, as far as discovery needs to
// control it.
type Client interface {
	// Stop terminates the client. Stopping a client that already
	// exited is not an error.
	Stop() error

	// Start launches a fresh client writing to the same log.
	Start() error
}

// Result is the outcome of a successful discovery.
type Result struct {
	Host string

	// Restarts counts the client restarts it took.
	Restarts int
}

// Discoverer finds the tunnel's public hostname.
type Discoverer struct {
	// StaticHost, when set, is returned without looking at the log.
	StaticHost string

	// LogPath is the quick-tunnel log file.
	LogPath string

	Client Client
	Clock  clock.Clock

	// MaxRestarts bounds the restart cycles. Zero means a single scan.
	MaxRestarts int

	// StopSettle and StartSettle are waited after stopping and after
	// starting the client in each restart cycle.
	StopSettle  time.Duration
	StartSettle time.Duration

	Logger *slog.Logger
}

// Discover returns the tunnel hostname. Between unsuccessful scans it
// removes the log, restarts the client and waits for the settle
// delays. After MaxRestarts cycles without a match it returns an error
// wrapping ErrDiscoveryFailed.
func (d *Discoverer) Discover(ctx context.Context) (Result, error) {
	if d.StaticHost != "" {
		d.Logger.Info("using reserved tunnel hostname", "host", d.StaticHost)
		return Result{Host: d.StaticHost}, nil
	}

	for restarts := 0; ; restarts++ {
		host, err := scanLog(d.LogPath)
		if err != nil {
			return Result{Restarts: restarts}, err
		}
		if host != "" {
			d.Logger.Info("tunnel hostname discovered", "host", host, "restarts", restarts)
			return Result{Host: host, Restarts: restarts}, nil
		}
		if restarts >= d.MaxRestarts {
			return Result{Restarts: restarts}, fmt.Errorf("%w after %d restarts", ErrDiscoveryFailed, restarts)
		}

		d.Logger.Warn("tunnel hostname not in log yet, restarting client",
			"log", d.LogPath,
			"attempt", restarts+1,
			"max_restarts", d.MaxRestarts,
		)
		if err := d.restart(ctx); err != nil {
			return Result{Restarts: restarts + 1}, err
		}
	}
}

func (d *Discoverer) restart(ctx context.Context) error {
	if err := os.Remove(d.LogPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing tunnel log: %w", err)
	}
	if err := d.Client.Stop(); err != nil {
		d.Logger.Warn("stopping tunnel client", "error", err)
	}
	if err := clock.Sleep(ctx, d.Clock, d.StopSettle); err != nil {
		return err
	}
	if err := d.Client.Start(); err != nil {
		return fmt.Errorf("restarting tunnel client: %w", err)
	}
	return clock.Sleep(ctx, d.Clock, d.StartSettle)
}

// scanLog reads path and extracts the hostname. A missing log means
// the client has not written it yet.
func scanLog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading tunnel log: %w", err)
	}
	return ExtractHost(string(data)), nil
}
