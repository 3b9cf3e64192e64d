// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lslove10010/argonode/lib/artifact"
	"github.com/lslove10010/argonode/lib/clock"
	"github.com/lslove10010/argonode/lib/config"
	"github.com/lslove10010/argonode/lib/launch"
	"github.com/lslove10010/argonode/lib/subscription"
	"github.com/lslove10010/argonode/lib/testutil"
	"github.com/lslove10010/argonode/lib/tunnel"
)

const testUUID = "4c2a3597-c6f6-4c94-8be0-f0fc49b8e574"

const sleeperScript = "#!/bin/sh\nexec sleep 30\n"

// quickTunnelScript writes a quick-tunnel hostname to the file named by
// --logfile, like the real client does once it is connected.
const quickTunnelScript = `#!/bin/sh
log=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--logfile" ]; then log="$2"; fi
  shift
done
if [ -n "$log" ]; then
  echo "INF +--------------------------------------------+" >> "$log"
  echo "INF |  https://foo.trycloudflare.com             |" >> "$log"
fi
exec sleep 30
`

// fakeWorld serves the artifact mirror, the ISP lookup, the aggregator
// and the keep-alive service from one httptest server.
type fakeWorld struct {
	server    *httptest.Server
	artifacts map[string]string

	mu       sync.Mutex
	requests map[string][]map[string]any
}

func newFakeWorld(t *testing.T, artifacts map[string]string) *fakeWorld {
	t.Helper()
	world := &fakeWorld{artifacts: artifacts, requests: make(map[string][]map[string]any)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /amd64/{name}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := world.artifacts[r.PathValue("name")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	})
	mux.HandleFunc("GET /geo", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"country_code":"US","org":"Example ISP"}`)
	})
	record := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		world.mu.Lock()
		world.requests[r.URL.Path] = append(world.requests[r.URL.Path], body)
		world.mu.Unlock()
		io.WriteString(w, `{"success":true}`)
	}
	mux.HandleFunc("POST /api/add-subscriptions", record)
	mux.HandleFunc("POST /api/add-nodes", record)
	mux.HandleFunc("POST /api/delete-nodes", record)
	mux.HandleFunc("POST /add-url", record)

	world.server = httptest.NewServer(mux)
	t.Cleanup(world.server.Close)
	return world
}

func (w *fakeWorld) received(path string) []map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requests[path]
}

func testConfig(t *testing.T, world *fakeWorld) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.WorkDir = filepath.Join(t.TempDir(), "app")
	cfg.UUID = testUUID
	cfg.SubPath = "sub"
	cfg.Artifacts.Mirror = world.server.URL + "/{arch}"
	cfg.Geo.PrimaryURL = world.server.URL + "/geo"
	cfg.Geo.FallbackURL = ""
	cfg.Discovery.MaxRestarts = 3
	cfg.Timing = config.Timing{
		AgentSettle:        10 * time.Millisecond,
		EngineSettle:       10 * time.Millisecond,
		TunnelSettle:       300 * time.Millisecond,
		PostLaunchSettle:   50 * time.Millisecond,
		RestartStopSettle:  100 * time.Millisecond,
		RestartStartSettle: 300 * time.Millisecond,
		CleanupDelay:       time.Hour,
		HTTPTimeout:        10 * time.Second,
	}
	return cfg
}

func runOrchestrator(t *testing.T, cfg config.Config) (Outcome, error) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script artifacts require a POSIX shell")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	launcher := launch.NewLauncher(logger)
	t.Cleanup(func() { launcher.KillAll(5 * time.Second) })

	orchestrator := New(Options{
		Config:   cfg,
		Arch:     artifact.ArchAMD,
		Launcher: launcher,
		Logger:   logger,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	outcome, err := orchestrator.Run(ctx)
	if outcome.Cleanup != nil {
		t.Cleanup(func() { outcome.Cleanup.Stop() })
	}
	return outcome, err
}

func TestRunQuickTunnel(t *testing.T) {
	world := newFakeWorld(t, map[string]string{
		"web": sleeperScript,
		"bot": quickTunnelScript,
		"v1":  sleeperScript,
	})
	cfg := testConfig(t, world)
	cfg.Links = config.LinksConfig{Address: "1.2.3.4", Port: 443, Name: "home"}
	cfg.Telemetry = config.TelemetryConfig{Server: "nz.example.com:443", Key: "agent-key"}
	cfg.Registry = config.RegistryConfig{
		UploadURL:    world.server.URL,
		ProjectURL:   "https://app.example.com",
		AutoAccess:   true,
		KeepaliveURL: world.server.URL + "/add-url",
	}

	// Leftovers of a previous run: its document (whose links must be
	// deleted from the aggregator) and an unrelated file.
	if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
		t.Fatal(err)
	}
	previous := subscription.Document([]string{"vless://old@1.1.1.1:443#old", "trojan://old@1.1.1.1:443#old"})
	if err := os.WriteFile(cfg.Path(config.SubscriptionFile), []byte(previous), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.WorkDir, "stale"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	outcome, err := runOrchestrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Host != "foo.trycloudflare.com" {
		t.Errorf("Host = %q", outcome.Host)
	}
	if outcome.Restarts > cfg.Discovery.MaxRestarts {
		t.Errorf("Restarts = %d exceeds ceiling %d", outcome.Restarts, cfg.Discovery.MaxRestarts)
	}
	if len(outcome.Artifacts) != 3 {
		t.Errorf("Artifacts = %+v, want agent, engine and tunnel", outcome.Artifacts)
	}

	wantVLESSParts := []string{
		"vless://" + testUUID + "@1.2.3.4:443?",
		"sni=foo.trycloudflare.com",
		"#home-US_Example%20ISP",
	}
	for _, part := range wantVLESSParts {
		if !strings.Contains(outcome.Links.VLESS, part) {
			t.Errorf("VLESS %q missing %q", outcome.Links.VLESS, part)
		}
	}

	written, err := os.ReadFile(cfg.Path(config.SubscriptionFile))
	if err != nil {
		t.Fatalf("reading subscription document: %v", err)
	}
	if string(written) != outcome.Document {
		t.Error("document on disk differs from the outcome")
	}
	decoded, err := subscription.Decode(written)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 3 || decoded[0] != outcome.Links.VLESS {
		t.Errorf("decoded document = %q", decoded)
	}

	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "stale")); !os.IsNotExist(err) {
		t.Error("stale file survived the working directory cleanup")
	}
	for _, name := range []string{config.EngineConfigFile, config.AgentConfigFile} {
		if _, err := os.Stat(cfg.Path(name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	deleted := world.received("/api/delete-nodes")
	if len(deleted) != 1 || len(deleted[0]["nodes"].([]any)) != 2 {
		t.Errorf("delete-nodes requests = %v", deleted)
	}
	subscriptions := world.received("/api/add-subscriptions")
	if len(subscriptions) != 1 {
		t.Fatalf("add-subscriptions requests = %v", subscriptions)
	}
	if got := subscriptions[0]["subscription"].([]any)[0]; got != "https://app.example.com/sub" {
		t.Errorf("subscription url = %v", got)
	}
	if nodes := world.received("/api/add-nodes"); len(nodes) != 0 {
		t.Errorf("add-nodes called although a project URL is set: %v", nodes)
	}
	keepalive := world.received("/add-url")
	if len(keepalive) != 1 || keepalive[0]["url"] != "https://app.example.com" {
		t.Errorf("keep-alive requests = %v", keepalive)
	}
}

func TestRunReservedTunnel(t *testing.T) {
	world := newFakeWorld(t, map[string]string{
		"web": sleeperScript,
		"bot": sleeperScript,
	})
	cfg := testConfig(t, world)
	cfg.Geo.PrimaryURL = world.server.URL + "/no-such-lookup"
	cfg.Tunnel.Domain = "edge.example.com"
	cfg.Tunnel.Auth = `{"AccountTag":"acct","TunnelSecret":"c2VjcmV0","TunnelID":"6ff42ae2-765d-4adf-8112-31c55c1551ef"}`

	outcome, err := runOrchestrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Host != "edge.example.com" || outcome.Restarts != 0 {
		t.Errorf("outcome host=%q restarts=%d", outcome.Host, outcome.Restarts)
	}
	// No edge address configured: clients dial the tunnel hostname.
	if !strings.Contains(outcome.Links.VLESS, "@edge.example.com:443?") {
		t.Errorf("VLESS = %s", outcome.Links.VLESS)
	}
	if !strings.HasSuffix(outcome.Links.Trojan, "#Unknown") {
		t.Errorf("Trojan = %s, want the Unknown label", outcome.Links.Trojan)
	}
	for _, name := range []string{config.TunnelCredentialsFile, config.TunnelRoutingFile} {
		if _, err := os.Stat(cfg.Path(name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestRunDownloadFailure(t *testing.T) {
	world := newFakeWorld(t, map[string]string{"web": sleeperScript})
	cfg := testConfig(t, world)

	_, err := runOrchestrator(t, cfg)
	if err == nil {
		t.Fatal("expected an error when the tunnel client cannot be downloaded")
	}
	if _, statErr := os.Stat(cfg.Path(config.SubscriptionFile)); !os.IsNotExist(statErr) {
		t.Error("subscription document written despite failed download")
	}
}

func TestRunDiscoveryFailure(t *testing.T) {
	world := newFakeWorld(t, map[string]string{
		"web": sleeperScript,
		"bot": sleeperScript,
	})
	cfg := testConfig(t, world)
	cfg.Discovery.MaxRestarts = 1
	cfg.Timing.RestartStartSettle = 10 * time.Millisecond

	outcome, err := runOrchestrator(t, cfg)
	if !errors.Is(err, tunnel.ErrDiscoveryFailed) {
		t.Fatalf("err = %v, want ErrDiscoveryFailed", err)
	}
	if outcome.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", outcome.Restarts)
	}
	if _, statErr := os.Stat(cfg.Path(config.SubscriptionFile)); !os.IsNotExist(statErr) {
		t.Error("subscription document written without a hostname")
	}
}

func TestRunTokenWithoutDomainRestartsWithLog(t *testing.T) {
	world := newFakeWorld(t, map[string]string{
		"web": sleeperScript,
		"bot": quickTunnelScript,
	})
	cfg := testConfig(t, world)
	cfg.Tunnel.Auth = strings.Repeat("A", 150)
	cfg.Tunnel.Domain = ""
	cfg.Discovery.MaxRestarts = 2

	outcome, err := runOrchestrator(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Host != "foo.trycloudflare.com" {
		t.Errorf("Host = %q, want foo.trycloudflare.com", outcome.Host)
	}
	if outcome.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", outcome.Restarts)
	}
}

func TestScheduleCleanup(t *testing.T) {
	directory := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = directory

	specs := []artifact.Spec{
		{Role: artifact.RoleEngine, Path: filepath.Join(directory, "abcdef")},
		{Role: artifact.RoleTunnel, Path: filepath.Join(directory, "ghijkl")},
	}
	transient := []string{specs[0].Path, specs[1].Path, cfg.Path(config.BootLogFile), cfg.Path(config.EngineConfigFile)}
	kept := []string{cfg.Path(config.SubscriptionFile), cfg.Path(config.TunnelCredentialsFile), cfg.Path(config.NodeListFile)}
	for _, path := range append(append([]string{}, transient...), kept...) {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	fake := clock.Fake(time.Unix(1_700_000_000, 0))
	orchestrator := New(Options{
		Config: cfg,
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	orchestrator.ScheduleCleanup(specs)

	fake.Advance(89 * time.Second)
	for _, path := range transient {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s removed before the grace period: %v", path, err)
		}
	}

	fake.Advance(time.Second)
	tunnelBinary := specs[1].Path
	for _, path := range transient {
		if path == tunnelBinary {
			continue
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s not removed", path)
		}
	}
	for _, path := range kept {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should be kept: %v", path, err)
		}
	}

	// Discovery has not returned, so a restart may still need the binary.
	if _, err := os.Stat(tunnelBinary); err != nil {
		t.Fatalf("tunnel binary removed while discovery is running: %v", err)
	}
	orchestrator.finishDiscovery()
	testutil.Eventually(t, 5*time.Second, func() bool {
		_, err := os.Stat(tunnelBinary)
		return os.IsNotExist(err)
	}, "tunnel binary not removed after discovery ended")
}

func TestScheduleCleanupAfterDiscovery(t *testing.T) {
	directory := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = directory
	tunnelBinary := filepath.Join(directory, "ghijkl")
	if err := os.WriteFile(tunnelBinary, []byte("x"), 0755); err != nil {
		t.Fatal(err)
	}

	fake := clock.Fake(time.Unix(1_700_000_000, 0))
	orchestrator := New(Options{Config: cfg, Clock: fake, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	orchestrator.ScheduleCleanup([]artifact.Spec{{Role: artifact.RoleTunnel, Path: tunnelBinary}})
	orchestrator.finishDiscovery()
	orchestrator.finishDiscovery()

	fake.Advance(cfg.Timing.CleanupDelay)
	if _, err := os.Stat(tunnelBinary); !os.IsNotExist(err) {
		t.Errorf("tunnel binary not removed when the timer fired: %v", err)
	}
}

func TestScheduleCleanupStop(t *testing.T) {
	directory := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = directory
	logPath := cfg.Path(config.BootLogFile)
	if err := os.WriteFile(logPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	fake := clock.Fake(time.Unix(1_700_000_000, 0))
	orchestrator := New(Options{Config: cfg, Clock: fake, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	timer := orchestrator.ScheduleCleanup(nil)
	if !timer.Stop() {
		t.Fatal("Stop returned false for a pending cleanup")
	}
	fake.Advance(time.Hour)
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log removed after Stop: %v", err)
	}
}

func TestCleanWorkDir(t *testing.T) {
	directory := filepath.Join(t.TempDir(), "work")
	if err := CleanWorkDir(directory); err != nil {
		t.Fatalf("creating: %v", err)
	}

	if err := os.WriteFile(filepath.Join(directory, "a"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(directory, "keep"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := CleanWorkDir(directory); err != nil {
		t.Fatalf("cleaning: %v", err)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep" {
		t.Errorf("entries after cleaning = %v", entries)
	}
}
