// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent builds the launch configuration for the optional
// telemetry agent.
//
// Two agent generations exist. The legacy agent is configured entirely
// through flags and is selected when an explicit server port is
// configured. The current agent reads a YAML file; its server address
// already carries the port, and this package renders that file with
// the fixed reporting policy argonode always uses.
//
// In both cases TLS is inferred from the server port: the set of
// HTTPS ports the tunnel edge proxies is treated as TLS, anything else
// as plaintext.
package agent
