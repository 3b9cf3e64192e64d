// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Arch is the binary family an artifact is built for.
type Arch string

const (
	ArchARM Arch = "arm"
	ArchAMD Arch = "amd"
)

// mirrorName is the path segment the artifact mirror uses for a family.
func (a Arch) mirrorName() string {
	if a == ArchARM {
		return "arm64"
	}
	return "amd64"
}

// ClassifyArch maps a reported machine architecture (runtime.GOARCH or
// uname -m) to a binary family. Anything not recognised as ARM falls
// back to AMD rather than failing.
func ClassifyArch(machine string) Arch {
	switch strings.ToLower(strings.TrimSpace(machine)) {
	case "arm", "arm64", "aarch64":
		return ArchARM
	default:
		return ArchAMD
	}
}

// Role identifies what an artifact is launched as.
type Role string

const (
	// RoleAgent is the flag-driven telemetry agent, used when an
	// explicit agent port is configured.
	RoleAgent Role = "agent"
	// RoleAgentV1 is the YAML-configured telemetry agent.
	RoleAgentV1 Role = "agent-v1"
	RoleEngine  Role = "engine"
	RoleTunnel  Role = "tunnel"
)

// remoteName is the file name under the mirror for each role.
var remoteName = map[Role]string{
	RoleAgent:   "agent",
	RoleAgentV1: "v1",
	RoleEngine:  "web",
	RoleTunnel:  "bot",
}

// Spec describes one artifact to fetch. Immutable once resolved.
type Spec struct {
	Role Role
	// Name is the randomized local file name.
	Name string
	URL  string
	// Path is Name joined onto the working directory.
	Path string
}

// ResolveRequest carries the inputs to Resolve.
type ResolveRequest struct {
	Arch Arch

	// Mirror is a URL template; "{arch}" is replaced with the
	// family's mirror name.
	Mirror string

	// Directory receives the downloaded files.
	Directory string

	// Telemetry selects whether an agent is needed at all.
	Telemetry bool

	// AgentPort selects the flag-driven agent when non-zero,
	// otherwise the YAML-configured one.
	AgentPort int
}

// Resolve returns the ordered artifact list for request. The engine and
// tunnel client are always present; a telemetry agent is prepended when
// requested.
func Resolve(request ResolveRequest) []Spec {
	base := strings.TrimRight(strings.ReplaceAll(request.Mirror, "{arch}", request.Arch.mirrorName()), "/")

	roles := []Role{RoleEngine, RoleTunnel}
	if request.Telemetry {
		agent := RoleAgentV1
		if request.AgentPort != 0 {
			agent = RoleAgent
		}
		roles = append([]Role{agent}, roles...)
	}

	specs := make([]Spec, 0, len(roles))
	for _, role := range roles {
		name := RandomName()
		specs = append(specs, Spec{
			Role: role,
			Name: name,
			URL:  base + "/" + remoteName[role],
			Path: filepath.Join(request.Directory, name),
		})
	}
	return specs
}

// Find returns the spec with the given role, if present.
func Find(specs []Spec, role Role) (Spec, bool) {
	for _, spec := range specs {
		if spec.Role == role {
			return spec, true
		}
	}
	return Spec{}, false
}

// RandomName returns a six-character lowercase identifier. The first
// character is always a letter so the name never looks like a flag or a
// number to the tools that see it.
func RandomName() string {
	id := uuid.New()
	const letters = "abcdefghijklmnopqrstuvwxyz"
	const alphabet = letters + "0123456789"
	name := make([]byte, 6)
	name[0] = letters[int(id[0])%len(letters)]
	for index := 1; index < len(name); index++ {
		name[index] = alphabet[int(id[index])%len(alphabet)]
	}
	return string(name)
}
