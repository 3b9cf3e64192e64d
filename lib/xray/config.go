// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package xray

import (
	"encoding/json"
	"fmt"

	"github.com/lslove10010/argonode/lib/atomicfile"
)

// WebSocket paths of the three path-routed sub-protocols. Links built
// by the subscription package must use the same paths.
const (
	VLESSPath  = "/vless-argo"
	VMessPath  = "/vmess-argo"
	TrojanPath = "/trojan-argo"
)

// Loopback ports of the internal listeners.
const (
	fallbackPort = 3001
	vlessPort    = 3002
	vmessPort    = 3003
	trojanPort   = 3004
)

const loopback = "127.0.0.1"

// Config is the engine's top-level JSON document.
type Config struct {
	Log       Log        `json:"log"`
	Inbounds  []Inbound  `json:"inbounds"`
	DNS       DNS        `json:"dns"`
	Outbounds []Outbound `json:"outbounds"`
}

// Log routes the engine's access and error logs.
type Log struct {
	Access   string `json:"access"`
	Error    string `json:"error"`
	LogLevel string `json:"loglevel"`
}

// Inbound is one listener. An empty Listen binds all interfaces.
type Inbound struct {
	Port           int             `json:"port"`
	Listen         string          `json:"listen,omitempty"`
	Protocol       string          `json:"protocol"`
	Settings       InboundSettings `json:"settings"`
	StreamSettings StreamSettings  `json:"streamSettings"`
	Sniffing       *Sniffing       `json:"sniffing,omitempty"`
}

// InboundSettings lists an inbound's clients and, for the public
// listener, where unmatched traffic falls back to.
type InboundSettings struct {
	Clients    []Client   `json:"clients"`
	Decryption string     `json:"decryption,omitempty"`
	Fallbacks  []Fallback `json:"fallbacks,omitempty"`
}

// Client is an accepted identity. VLESS and VMess use ID, Trojan uses
// Password.
type Client struct {
	ID       string `json:"id,omitempty"`
	Password string `json:"password,omitempty"`
	Flow     string `json:"flow,omitempty"`
	Level    *int   `json:"level,omitempty"`
	AlterID  *int   `json:"alterId,omitempty"`
}

// Fallback forwards traffic matching Path (or everything, when Path is
// empty) to the loopback listener on Dest.
type Fallback struct {
	Path string `json:"path,omitempty"`
	Dest int    `json:"dest"`
}

// StreamSettings selects an inbound's transport.
type StreamSettings struct {
	Network    string      `json:"network"`
	Security   string      `json:"security,omitempty"`
	WSSettings *WSSettings `json:"wsSettings,omitempty"`
}

// WSSettings is the websocket transport's upgrade path.
type WSSettings struct {
	Path string `json:"path"`
}

// Sniffing lets the engine route by the sniffed destination.
type Sniffing struct {
	Enabled      bool     `json:"enabled"`
	DestOverride []string `json:"destOverride"`
	MetadataOnly bool     `json:"metadataOnly"`
}

// DNS lists the resolvers the engine uses.
type DNS struct {
	Servers []string `json:"servers"`
}

// Outbound is a named egress; the first one is the default route.
type Outbound struct {
	Protocol string `json:"protocol"`
	Tag      string `json:"tag"`
}

// Generate builds the engine configuration for identity uuid with the
// public listener on originPort. The result depends only on its inputs.
func Generate(uuid string, originPort int) Config {
	zero := 0
	sniffing := func() *Sniffing {
		return &Sniffing{Enabled: true, DestOverride: []string{"http", "tls", "quic"}}
	}
	websocket := func(path string) *WSSettings { return &WSSettings{Path: path} }

	return Config{
		Log: Log{Access: "/dev/null", Error: "/dev/null", LogLevel: "none"},
		Inbounds: []Inbound{
			{
				Port:     originPort,
				Protocol: "vless",
				Settings: InboundSettings{
					Clients:    []Client{{ID: uuid, Flow: "xtls-rprx-vision"}},
					Decryption: "none",
					Fallbacks: []Fallback{
						{Dest: fallbackPort},
						{Path: VLESSPath, Dest: vlessPort},
						{Path: VMessPath, Dest: vmessPort},
						{Path: TrojanPath, Dest: trojanPort},
					},
				},
				StreamSettings: StreamSettings{Network: "tcp"},
			},
			{
				Port:           fallbackPort,
				Listen:         loopback,
				Protocol:       "vless",
				Settings:       InboundSettings{Clients: []Client{{ID: uuid}}, Decryption: "none"},
				StreamSettings: StreamSettings{Network: "tcp", Security: "none"},
			},
			{
				Port:           vlessPort,
				Listen:         loopback,
				Protocol:       "vless",
				Settings:       InboundSettings{Clients: []Client{{ID: uuid, Level: &zero}}, Decryption: "none"},
				StreamSettings: StreamSettings{Network: "ws", Security: "none", WSSettings: websocket(VLESSPath)},
				Sniffing:       sniffing(),
			},
			{
				Port:           vmessPort,
				Listen:         loopback,
				Protocol:       "vmess",
				Settings:       InboundSettings{Clients: []Client{{ID: uuid, AlterID: &zero}}},
				StreamSettings: StreamSettings{Network: "ws", WSSettings: websocket(VMessPath)},
				Sniffing:       sniffing(),
			},
			{
				Port:           trojanPort,
				Listen:         loopback,
				Protocol:       "trojan",
				Settings:       InboundSettings{Clients: []Client{{Password: uuid}}},
				StreamSettings: StreamSettings{Network: "ws", Security: "none", WSSettings: websocket(TrojanPath)},
				Sniffing:       sniffing(),
			},
		},
		DNS: DNS{Servers: []string{"https+local://8.8.8.8/dns-query"}},
		Outbounds: []Outbound{
			{Protocol: "freedom", Tag: "direct"},
			{Protocol: "blackhole", Tag: "block"},
		},
	}
}

// Marshal renders config as indented JSON.
func Marshal(config Config) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

// Write replaces the file at path with config. Any previous content is
// discarded, not merged.
func Write(path string, config Config) error {
	data, err := Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding engine config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing engine config: %w", err)
	}
	return nil
}
