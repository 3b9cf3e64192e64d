// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File names inside WorkDir. The engine config and the subscription
// document have a single writer each; everything else is written once
// per run.
const (
	EngineConfigFile      = "config.json"
	SubscriptionFile      = "sub.txt"
	NodeListFile          = "list.txt"
	BootLogFile           = "boot.log"
	TunnelCredentialsFile = "tunnel.json"
	TunnelRoutingFile     = "tunnel.yml"
	AgentConfigFile       = "config.yaml"
)

// Config is the complete argonode configuration. It is built once by
// Load and passed by value.
type Config struct {
	// WorkDir holds every file argonode writes: downloaded binaries,
	// generated configs, logs and the subscription document.
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	// Port is the publisher's HTTP listen port.
	Port int `yaml:"port" json:"port"`

	// SubPath is the URL path (without leading slash) that serves the
	// subscription document. Empty means "/".
	SubPath string `yaml:"sub_path" json:"sub_path"`

	// UUID is the identity credential shared by every inbound client
	// in the engine config and embedded in every link.
	UUID string `yaml:"uuid" json:"uuid"`

	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Tunnel    TunnelConfig    `yaml:"tunnel" json:"tunnel"`
	Links     LinksConfig     `yaml:"links" json:"links"`
	Registry  RegistryConfig  `yaml:"registry" json:"registry"`
	Artifacts ArtifactsConfig `yaml:"artifacts" json:"artifacts"`
	Geo       GeoConfig       `yaml:"geo" json:"geo"`
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Timing holds the settle delays and grace periods. Not read from
	// files or the environment; tests shorten it directly.
	Timing Timing `yaml:"-" json:"-"`
}

// TelemetryConfig configures the optional monitoring agent.
type TelemetryConfig struct {
	// Server is "host" when Port is set, or "host:port" for the
	// YAML-configured agent.
	Server string `yaml:"server" json:"server"`

	// Port selects the legacy flag-driven agent when non-zero.
	Port int `yaml:"port" json:"port"`

	Key string `yaml:"key" json:"key"`
}

// TunnelConfig configures the tunnel client.
type TunnelConfig struct {
	// Domain is the reserved tunnel's public hostname.
	Domain string `yaml:"domain" json:"domain"`

	// Auth is either a connector token or a credentials JSON document
	// containing TunnelSecret.
	Auth string `yaml:"auth" json:"auth"`

	// OriginPort is the engine's externally reachable listener; the
	// tunnel forwards to http://localhost:OriginPort.
	OriginPort int `yaml:"origin_port" json:"origin_port"`
}

// LinksConfig controls the client-facing side of generated links.
type LinksConfig struct {
	// Address is the edge IP or hostname clients connect to. Empty
	// means "use the tunnel hostname".
	Address string `yaml:"address" json:"address"`
	Port    int    `yaml:"port" json:"port"`

	// Name prefixes the ISP label in every node's display name.
	Name string `yaml:"name" json:"name"`
}

// RegistryConfig configures the remote aggregator and keep-alive.
type RegistryConfig struct {
	UploadURL    string `yaml:"upload_url" json:"upload_url"`
	ProjectURL   string `yaml:"project_url" json:"project_url"`
	AutoAccess   bool   `yaml:"auto_access" json:"auto_access"`
	KeepaliveURL string `yaml:"keepalive_url" json:"keepalive_url"`
}

// ArtifactsConfig locates the prebuilt executables.
type ArtifactsConfig struct {
	// Mirror is a URL template; "{arch}" becomes arm64 or amd64.
	Mirror string `yaml:"mirror" json:"mirror"`
}

// GeoConfig lists the ISP lookup endpoints in the order they are tried.
type GeoConfig struct {
	PrimaryURL  string `yaml:"primary_url" json:"primary_url"`
	FallbackURL string `yaml:"fallback_url" json:"fallback_url"`
}

// DiscoveryConfig bounds the quick-tunnel restart loop.
type DiscoveryConfig struct {
	MaxRestarts int `yaml:"max_restarts" json:"max_restarts"`
}

// Timing collects every fixed delay in the bootstrap sequence.
type Timing struct {
	AgentSettle        time.Duration
	EngineSettle       time.Duration
	TunnelSettle       time.Duration
	PostLaunchSettle   time.Duration
	RestartStopSettle  time.Duration
	RestartStartSettle time.Duration
	CleanupDelay       time.Duration
	HTTPTimeout        time.Duration
}

// DefaultUUID is used when no identity credential is configured.
const DefaultUUID = "4c2a3597-c6f6-4c94-8be0-f0fc49b8e574"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WorkDir: "./app",
		Port:    3000,
		UUID:    DefaultUUID,
		Tunnel:  TunnelConfig{OriginPort: 8001},
		Links:   LinksConfig{Port: 443},
		Registry: RegistryConfig{
			KeepaliveURL: "https://oooo.serv00.net/add-url",
		},
		Artifacts: ArtifactsConfig{Mirror: "https://{arch}.ssss.nyc.mn"},
		Geo: GeoConfig{
			PrimaryURL:  "https://ipapi.co/json/",
			FallbackURL: "http://ip-api.com/json/",
		},
		Discovery: DiscoveryConfig{MaxRestarts: 10},
		Timing: Timing{
			AgentSettle:        time.Second,
			EngineSettle:       time.Second,
			TunnelSettle:       2 * time.Second,
			PostLaunchSettle:   5 * time.Second,
			RestartStopSettle:  3 * time.Second,
			RestartStartSettle: 3 * time.Second,
			CleanupDelay:       90 * time.Second,
			HTTPTimeout:        60 * time.Second,
		},
	}
}

// Validate reports the first problem that would make a run fail.
func (c Config) Validate() error {
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir must not be empty")
	}
	if _, err := uuid.Parse(c.UUID); err != nil {
		return fmt.Errorf("uuid %q: %w", c.UUID, err)
	}
	for _, port := range []struct {
		name     string
		value    int
		optional bool
	}{
		{"port", c.Port, false},
		{"tunnel.origin_port", c.Tunnel.OriginPort, false},
		{"links.port", c.Links.Port, false},
		{"telemetry.port", c.Telemetry.Port, true},
	} {
		if port.optional && port.value == 0 {
			continue
		}
		if port.value < 1 || port.value > 65535 {
			return fmt.Errorf("%s %d out of range 1-65535", port.name, port.value)
		}
	}
	if c.Discovery.MaxRestarts < 0 {
		return fmt.Errorf("discovery.max_restarts must not be negative, got %d", c.Discovery.MaxRestarts)
	}
	return nil
}

// Path returns name joined onto WorkDir.
func (c Config) Path(name string) string {
	return filepath.Join(c.WorkDir, name)
}

// TelemetryEnabled reports whether the monitoring agent should run.
func (c Config) TelemetryEnabled() bool {
	return c.Telemetry.Server != "" && c.Telemetry.Key != ""
}

// ReservedTunnel reports whether the tunnel hostname is fixed by
// configuration rather than discovered.
func (c Config) ReservedTunnel() bool {
	return c.Tunnel.Domain != "" && c.Tunnel.Auth != ""
}

// SubscriptionURL is the public URL of the subscription document, or
// "" when no project URL is configured.
func (c Config) SubscriptionURL() string {
	if c.Registry.ProjectURL == "" {
		return ""
	}
	return strings.TrimRight(c.Registry.ProjectURL, "/") + "/" + c.SubPath
}
