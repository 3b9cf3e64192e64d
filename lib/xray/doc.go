// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package xray generates the proxy engine's JSON configuration.
//
// The layout is a single externally reachable VLESS listener on the
// tunnel origin port that hands connections off by WebSocket path to
// loopback listeners:
//
//	:origin  vless/tcp ──┬─ (default)      → 127.0.0.1:3001 vless/tcp
//	                     ├─ /vless-argo    → 127.0.0.1:3002 vless/ws
//	                     ├─ /vmess-argo    → 127.0.0.1:3003 vmess/ws
//	                     └─ /trojan-argo   → 127.0.0.1:3004 trojan/ws
//
// Every client entry carries the same identity UUID. The three
// path-routed listeners have traffic sniffing enabled. Outbound routing
// is direct ("freedom") with a "blackhole" block route, and DNS goes
// through DNS-over-HTTPS.
package xray
