// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package tunnel drives the tunnel client: it decides how the client is
// invoked, writes the files a reserved tunnel needs, and discovers the
// public hostname the engine is reachable under.
//
// The configured auth value selects one of three modes:
//
//   - [ModeToken]: a connector token, 120-250 characters of
//     [A-Za-z0-9=]. The client fetches its routing from the edge.
//   - [ModeCredentials]: a credentials JSON document containing
//     TunnelSecret, together with a reserved domain. The document is
//     written to tunnel.json and a routing file (tunnel.yml) mapping
//     the domain to the engine's origin port is generated next to it.
//   - [ModeQuick]: anything else. The client requests an ephemeral
//     hostname and reports it in its log file.
//
// For a reserved tunnel (domain and auth both configured) the hostname
// is known up front. For everything else [Discoverer] scans the log
// for the assigned hostname, restarting the client between scans, up
// to a bounded number of times.
package tunnel
