// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lslove10010/argonode/lib/agent"
	"github.com/lslove10010/argonode/lib/artifact"
	"github.com/lslove10010/argonode/lib/clock"
	"github.com/lslove10010/argonode/lib/config"
	"github.com/lslove10010/argonode/lib/geoip"
	"github.com/lslove10010/argonode/lib/launch"
	"github.com/lslove10010/argonode/lib/registry"
	"github.com/lslove10010/argonode/lib/subscription"
	"github.com/lslove10010/argonode/lib/tunnel"
	"github.com/lslove10010/argonode/lib/xray"
)

// Options configures an Orchestrator.
type Options struct {
	Config config.Config

	// Arch selects which binary family to download.
	Arch artifact.Arch

	// Clock drives every settle delay and the cleanup timer.
	// Defaults to the real clock.
	Clock clock.Clock

	// HTTPClient is used for downloads and every remote call.
	// Defaults to a client with Config.Timing.HTTPTimeout.
	HTTPClient *http.Client

	// Launcher starts the external processes. The caller owns it and
	// calls KillAll at shutdown.
	Launcher *launch.Launcher

	Logger *slog.Logger
}

// Orchestrator runs the bootstrap sequence once.
type Orchestrator struct {
	config   config.Config
	arch     artifact.Arch
	clock    clock.Clock
	launcher *launch.Launcher
	fetcher  *artifact.Fetcher
	registry *registry.Client
	geo      *geoip.Resolver
	logger   *slog.Logger

	// discovered is closed once Run no longer needs the tunnel binary
	// on disk: discovery has returned or Run is exiting.
	discovered     chan struct{}
	discoveredOnce sync.Once
}

// New returns an Orchestrator for options.
func New(options Options) *Orchestrator {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: options.Config.Timing.HTTPTimeout}
	}
	cfg := options.Config
	return &Orchestrator{
		config:   cfg,
		arch:     options.Arch,
		clock:    options.Clock,
		launcher: options.Launcher,
		fetcher:  artifact.NewFetcher(options.HTTPClient, options.Logger),
		registry: &registry.Client{
			UploadURL:    cfg.Registry.UploadURL,
			KeepaliveURL: cfg.Registry.KeepaliveURL,
			HTTP:         options.HTTPClient,
		},
		geo: &geoip.Resolver{
			PrimaryURL:  cfg.Geo.PrimaryURL,
			FallbackURL: cfg.Geo.FallbackURL,
			Client:      options.HTTPClient,
			Logger:      options.Logger,
		},
		logger:     options.Logger,
		discovered: make(chan struct{}),
	}
}

// Outcome summarises a successful run.
type Outcome struct {
	// Host is the tunnel hostname the links point at.
	Host string

	// Restarts counts tunnel client restarts during discovery.
	Restarts int

	Links    subscription.Links
	Document string

	// Artifacts are the binaries that were downloaded and launched.
	Artifacts []artifact.Spec

	// Cleanup is the pending removal of the binaries and transient
	// files. Stop it to keep them.
	Cleanup *clock.Timer
}

// Run executes the bootstrap sequence. See the package documentation
// for the steps and which failures are fatal.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	cfg := o.config
	specs := artifact.Resolve(artifact.ResolveRequest{
		Arch:      o.arch,
		Mirror:    cfg.Artifacts.Mirror,
		Directory: cfg.WorkDir,
		Telemetry: cfg.TelemetryEnabled(),
		AgentPort: cfg.Telemetry.Port,
	})
	outcome := Outcome{Artifacts: specs}
	outcome.Cleanup = o.ScheduleCleanup(specs)
	defer o.finishDiscovery()

	o.deleteStaleNodes(ctx)

	if err := CleanWorkDir(cfg.WorkDir); err != nil {
		return outcome, err
	}

	mode := tunnel.DetectMode(cfg.Tunnel.Auth, cfg.Tunnel.Domain)
	if mode == tunnel.ModeCredentials {
		files := tunnel.ReservedFiles{
			CredentialsPath: cfg.Path(config.TunnelCredentialsFile),
			RoutingPath:     cfg.Path(config.TunnelRoutingFile),
			Domain:          cfg.Tunnel.Domain,
			OriginPort:      cfg.Tunnel.OriginPort,
		}
		if err := files.Write(cfg.Tunnel.Auth); err != nil {
			return outcome, err
		}
	}
	o.logger.Info("tunnel mode selected", "mode", mode.String(), "reserved", cfg.ReservedTunnel())

	if err := xray.Write(cfg.Path(config.EngineConfigFile), xray.Generate(cfg.UUID, cfg.Tunnel.OriginPort)); err != nil {
		return outcome, err
	}

	if err := o.fetcher.FetchAll(ctx, specs); err != nil {
		return outcome, fmt.Errorf("downloading artifacts: %w", err)
	}

	tunnelClient, err := o.launchAll(ctx, specs, mode)
	if err != nil {
		return outcome, err
	}

	discoverer := &tunnel.Discoverer{
		LogPath:     cfg.Path(config.BootLogFile),
		Client:      tunnelClient,
		Clock:       o.clock,
		MaxRestarts: cfg.Discovery.MaxRestarts,
		StopSettle:  cfg.Timing.RestartStopSettle,
		StartSettle: cfg.Timing.RestartStartSettle,
		Logger:      o.logger,
	}
	if cfg.ReservedTunnel() {
		discoverer.StaticHost = cfg.Tunnel.Domain
	}
	result, err := discoverer.Discover(ctx)
	o.finishDiscovery()
	outcome.Restarts = result.Restarts
	if err != nil {
		return outcome, fmt.Errorf("discovering tunnel hostname: %w", err)
	}
	outcome.Host = result.Host

	links, document, err := o.publishLinks(ctx, result.Host)
	if err != nil {
		return outcome, err
	}
	outcome.Links = links
	outcome.Document = document

	o.register(ctx)
	return outcome, nil
}

// finishDiscovery releases the tunnel binary to the cleanup.
func (o *Orchestrator) finishDiscovery() {
	o.discoveredOnce.Do(func() { close(o.discovered) })
}

// launchAll starts the agent, engine and tunnel client in that order
// and returns a handle for restarting the tunnel client.
func (o *Orchestrator) launchAll(ctx context.Context, specs []artifact.Spec, mode tunnel.Mode) (*tunnelProcess, error) {
	cfg := o.config
	timing := cfg.Timing

	if agentSpec, ok := o.agentLaunchSpec(specs); ok {
		if _, err := o.launcher.Start(agentSpec); err != nil {
			// Telemetry is optional; the node works without it.
			o.logger.Error("telemetry agent failed to start", "error", err)
		} else if err := clock.Sleep(ctx, o.clock, timing.AgentSettle); err != nil {
			return nil, err
		}
	}

	engine, _ := artifact.Find(specs, artifact.RoleEngine)
	if _, err := o.launcher.Start(launch.Spec{
		Name: "engine",
		Path: engine.Path,
		Args: []string{"-c", cfg.Path(config.EngineConfigFile)},
		Dir:  cfg.WorkDir,
	}); err != nil {
		return nil, err
	}
	if err := clock.Sleep(ctx, o.clock, timing.EngineSettle); err != nil {
		return nil, err
	}

	tunnelSpec, _ := artifact.Find(specs, artifact.RoleTunnel)
	tunnelLaunch := func(argMode tunnel.Mode) launch.Spec {
		return launch.Spec{
			Name: "tunnel",
			Path: tunnelSpec.Path,
			Args: tunnel.Args(tunnel.ArgsRequest{
				Mode:        argMode,
				Auth:        cfg.Tunnel.Auth,
				RoutingPath: cfg.Path(config.TunnelRoutingFile),
				LogPath:     cfg.Path(config.BootLogFile),
				OriginPort:  cfg.Tunnel.OriginPort,
			}),
			Dir: cfg.WorkDir,
		}
	}
	// Restarts only happen while scanning for a quick-tunnel hostname,
	// e.g. a connector token without a reserved domain.
	client := &tunnelProcess{
		launcher:    o.launcher,
		spec:        tunnelLaunch(mode),
		restartSpec: tunnelLaunch(tunnel.ModeQuick),
		stopTimeout: timing.RestartStopSettle,
	}
	if err := client.Start(); err != nil {
		return nil, err
	}
	if err := clock.Sleep(ctx, o.clock, timing.TunnelSettle); err != nil {
		return nil, err
	}

	if err := clock.Sleep(ctx, o.clock, timing.PostLaunchSettle); err != nil {
		return nil, err
	}
	return client, nil
}

// agentLaunchSpec builds the agent's launch spec, writing its YAML
// config when the current agent generation is used.
func (o *Orchestrator) agentLaunchSpec(specs []artifact.Spec) (launch.Spec, bool) {
	cfg := o.config
	if spec, ok := artifact.Find(specs, artifact.RoleAgent); ok {
		return launch.Spec{
			Name: "agent",
			Path: spec.Path,
			Args: agent.LegacyArgs(cfg.Telemetry.Server, cfg.Telemetry.Port, cfg.Telemetry.Key),
			Dir:  cfg.WorkDir,
		}, true
	}

	spec, ok := artifact.Find(specs, artifact.RoleAgentV1)
	if !ok {
		return launch.Spec{}, false
	}
	configPath := cfg.Path(config.AgentConfigFile)
	if err := agent.Write(configPath, agent.NewConfig(cfg.Telemetry.Server, cfg.Telemetry.Key, cfg.UUID)); err != nil {
		o.logger.Error("telemetry agent not started", "error", err)
		return launch.Spec{}, false
	}
	return launch.Spec{
		Name: "agent",
		Path: spec.Path,
		Args: agent.Args(configPath),
		Dir:  cfg.WorkDir,
	}, true
}

// publishLinks renders the links for host and writes the subscription
// document.
func (o *Orchestrator) publishLinks(ctx context.Context, host string) (subscription.Links, string, error) {
	cfg := o.config
	isp := o.geo.Lookup(ctx)

	address := cfg.Links.Address
	if address == "" {
		address = host
	}
	links, err := subscription.Build(subscription.Node{
		UUID:    cfg.UUID,
		Address: address,
		Port:    cfg.Links.Port,
		Host:    host,
		Name:    subscription.DisplayName(cfg.Links.Name, isp),
	})
	if err != nil {
		return subscription.Links{}, "", err
	}

	document := subscription.Document(links.All())
	path := cfg.Path(config.SubscriptionFile)
	if err := subscription.Write(path, document); err != nil {
		return subscription.Links{}, "", err
	}
	o.logger.Info("subscription document written", "path", path, "host", host, "isp", isp, "document", document)
	return links, document, nil
}

// deleteStaleNodes removes the previous run's links from the
// aggregator. Best-effort.
func (o *Orchestrator) deleteStaleNodes(ctx context.Context) {
	if o.config.Registry.UploadURL == "" {
		return
	}
	data, err := os.ReadFile(o.config.Path(config.SubscriptionFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("reading previous subscription document", "error", err)
		}
		return
	}
	links, err := subscription.Decode(data)
	if err != nil {
		o.logger.Warn("previous subscription document unreadable", "error", err)
		return
	}
	nodes := registry.FilterNodes([]byte(strings.Join(links, "\n")))
	if len(nodes) == 0 {
		return
	}
	if err := o.registry.DeleteNodes(ctx, nodes); err != nil {
		o.logger.Warn("deleting stale nodes", "error", err)
		return
	}
	o.logger.Info("stale nodes deleted", "count", len(nodes))
}

// register pushes the new document or node list to the aggregator and
// registers the keep-alive. Best-effort.
func (o *Orchestrator) register(ctx context.Context) {
	cfg := o.config
	switch {
	case cfg.Registry.UploadURL != "" && cfg.Registry.ProjectURL != "":
		subscriptionURL := cfg.SubscriptionURL()
		if err := o.registry.AddSubscriptions(ctx, subscriptionURL); err != nil {
			o.logger.Warn("uploading subscription", "error", err)
		} else {
			o.logger.Info("subscription uploaded", "url", subscriptionURL)
		}
	case cfg.Registry.UploadURL != "":
		nodes, err := registry.ReadNodes(cfg.Path(config.NodeListFile))
		if err != nil {
			o.logger.Warn("reading node list", "error", err)
		} else if len(nodes) > 0 {
			if err := o.registry.AddNodes(ctx, nodes); err != nil {
				o.logger.Warn("uploading nodes", "error", err)
			} else {
				o.logger.Info("nodes uploaded", "count", len(nodes))
			}
		}
	}

	if cfg.Registry.AutoAccess && cfg.Registry.ProjectURL != "" {
		if err := o.registry.Keepalive(ctx, cfg.Registry.ProjectURL); err != nil {
			o.logger.Warn("registering keep-alive", "error", err)
		} else {
			o.logger.Info("keep-alive registered", "url", cfg.Registry.ProjectURL)
		}
	}
}

// CleanWorkDir creates directory if needed and removes every regular
// file in it. Subdirectories are left alone.
func CleanWorkDir(directory string) error {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating working directory: %w", err)
	}
	entries, err := os.ReadDir(directory)
	if err != nil {
		return fmt.Errorf("listing working directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(directory, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cleaning working directory: %w", err)
		}
	}
	return nil
}
