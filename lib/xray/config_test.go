// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package xray

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const testUUID = "4c2a3597-c6f6-4c94-8be0-f0fc49b8e574"

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Marshal(Generate(testUUID, 8001))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(Generate(testUUID, 8001))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different output")
	}
}

func TestGenerateListeners(t *testing.T) {
	config := Generate(testUUID, 8001)

	var external, sniffed int
	for _, inbound := range config.Inbounds {
		if inbound.Listen == "" {
			external++
			if inbound.Port != 8001 {
				t.Errorf("external listener port = %d, want 8001", inbound.Port)
			}
			continue
		}
		if inbound.Listen != "127.0.0.1" {
			t.Errorf("internal listener on %q, want loopback", inbound.Listen)
		}
		if inbound.Sniffing != nil && inbound.Sniffing.Enabled {
			sniffed++
			if inbound.StreamSettings.Network != "ws" || inbound.StreamSettings.WSSettings == nil {
				t.Errorf("sniffed listener %d is not websocket", inbound.Port)
			}
		}
	}
	if external != 1 {
		t.Errorf("got %d externally reachable listeners, want 1", external)
	}
	if sniffed != 3 {
		t.Errorf("got %d path-routed sniffing listeners, want 3", sniffed)
	}
}

func TestGenerateFallbacksMatchListeners(t *testing.T) {
	config := Generate(testUUID, 8001)

	ports := map[int]Inbound{}
	for _, inbound := range config.Inbounds {
		ports[inbound.Port] = inbound
	}
	for _, fallback := range config.Inbounds[0].Settings.Fallbacks {
		target, ok := ports[fallback.Dest]
		if !ok {
			t.Errorf("fallback to %d has no listener", fallback.Dest)
			continue
		}
		if fallback.Path == "" {
			continue
		}
		if target.StreamSettings.WSSettings == nil || target.StreamSettings.WSSettings.Path != fallback.Path {
			t.Errorf("fallback path %q routes to listener %d with a different path", fallback.Path, fallback.Dest)
		}
	}
}

func TestGenerateSharesIdentity(t *testing.T) {
	for _, inbound := range Generate(testUUID, 8001).Inbounds {
		for _, client := range inbound.Settings.Clients {
			credential := client.ID
			if inbound.Protocol == "trojan" {
				credential = client.Password
			}
			if credential != testUUID {
				t.Errorf("%s listener %d has credential %q", inbound.Protocol, inbound.Port, credential)
			}
		}
	}
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"stale": true, "padding": "................................................"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Write(path, Generate(testUUID, 9000)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if bytes.Contains(data, []byte("stale")) {
		t.Error("previous content was merged instead of replaced")
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		t.Fatalf("parsing written config: %v", err)
	}
	if config.Inbounds[0].Port != 9000 {
		t.Errorf("round-tripped external port = %d", config.Inbounds[0].Port)
	}
}

func TestWriteFailure(t *testing.T) {
	if err := Write(filepath.Join(t.TempDir(), "no", "such", "dir", "config.json"), Generate(testUUID, 8001)); err == nil {
		t.Fatal("expected storage write failure")
	}
}
