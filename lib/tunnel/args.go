// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package tunnel

import (
	"regexp"
	"strconv"
	"strings"
)

// Mode is how the tunnel client authenticates and routes.
type Mode int

const (
	ModeQuick Mode = iota
	ModeToken
	ModeCredentials
)

func (m Mode) String() string {
	switch m {
	case ModeToken:
		return "token"
	case ModeCredentials:
		return "credentials"
	default:
		return "quick"
	}
}

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9=]{120,250}$`)

// DetectMode classifies auth. Credentials mode also needs a domain,
// since the routing file maps that domain to the origin; credentials
// without one fall back to a quick tunnel.
func DetectMode(auth, domain string) Mode {
	switch {
	case tokenPattern.MatchString(auth):
		return ModeToken
	case strings.Contains(auth, "TunnelSecret") && domain != "":
		return ModeCredentials
	default:
		return ModeQuick
	}
}

// ArgsRequest carries everything the argument sets depend on.
type ArgsRequest struct {
	Mode Mode

	// Auth is the connector token (token mode only).
	Auth string

	// RoutingPath is the generated tunnel.yml (credentials mode only).
	RoutingPath string

	// LogPath receives the client log in quick mode.
	LogPath string

	// OriginPort is the engine's external listener.
	OriginPort int
}

// Args returns the client's command line for request.
func Args(request ArgsRequest) []string {
	switch request.Mode {
	case ModeToken:
		return []string{
			"tunnel", "--edge-ip-version", "auto", "--no-autoupdate",
			"--protocol", "http2", "run", "--token", request.Auth,
		}
	case ModeCredentials:
		return []string{
			"tunnel", "--edge-ip-version", "auto",
			"--config", request.RoutingPath, "run",
		}
	default:
		return []string{
			"tunnel", "--edge-ip-version", "auto", "--no-autoupdate",
			"--protocol", "http2",
			"--logfile", request.LogPath,
			"--loglevel", "info",
			"--url", "http://localhost:" + strconv.Itoa(request.OriginPort),
		}
	}
}
