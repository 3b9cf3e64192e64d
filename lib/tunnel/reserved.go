// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package tunnel

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lslove10010/argonode/lib/atomicfile"
)

// Credentials is the subset of the credentials document argonode
// needs.
type Credentials struct {
	AccountTag   string `json:"AccountTag"`
	TunnelSecret string `json:"TunnelSecret"`
	TunnelID     string `json:"TunnelID"`
}

// ParseCredentials decodes a credentials document. TunnelID and
// TunnelSecret must both be present.
func ParseCredentials(document string) (Credentials, error) {
	var credentials Credentials
	if err := json.Unmarshal([]byte(document), &credentials); err != nil {
		return Credentials{}, fmt.Errorf("parsing tunnel credentials: %w", err)
	}
	if credentials.TunnelID == "" {
		return Credentials{}, fmt.Errorf("tunnel credentials have no TunnelID")
	}
	if credentials.TunnelSecret == "" {
		return Credentials{}, fmt.Errorf("tunnel credentials have no TunnelSecret")
	}
	return credentials, nil
}

// Routing is the tunnel client's config file for a reserved tunnel.
type Routing struct {
	Tunnel          string        `yaml:"tunnel"`
	CredentialsFile string        `yaml:"credentials-file"`
	Protocol        string        `yaml:"protocol"`
	Ingress         []IngressRule `yaml:"ingress"`
}

// IngressRule routes a hostname to a local service. A rule with no
// hostname is the catch-all.
type IngressRule struct {
	Hostname      string         `yaml:"hostname,omitempty"`
	Service       string         `yaml:"service"`
	OriginRequest *OriginRequest `yaml:"originRequest,omitempty"`
}

// OriginRequest tunes the connection to the origin.
type OriginRequest struct {
	NoTLSVerify bool `yaml:"noTLSVerify"`
}

// NewRouting maps domain to the engine's origin port and answers 404
// for everything else.
func NewRouting(tunnelID, credentialsPath, domain string, originPort int) Routing {
	return Routing{
		Tunnel:          tunnelID,
		CredentialsFile: credentialsPath,
		Protocol:        "http2",
		Ingress: []IngressRule{
			{
				Hostname:      domain,
				Service:       "http://localhost:" + strconv.Itoa(originPort),
				OriginRequest: &OriginRequest{NoTLSVerify: true},
			},
			{Service: "http_status:404"},
		},
	}
}

// ReservedFiles describes the credentials and routing files of a
// reserved tunnel.
type ReservedFiles struct {
	CredentialsPath string
	RoutingPath     string
	Domain          string
	OriginPort      int
}

// Write stores the credentials document verbatim and generates the
// routing file from its TunnelID.
func (f ReservedFiles) Write(document string) error {
	credentials, err := ParseCredentials(document)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(f.CredentialsPath, []byte(document), 0600); err != nil {
		return fmt.Errorf("writing tunnel credentials: %w", err)
	}

	routing := NewRouting(credentials.TunnelID, f.CredentialsPath, f.Domain, f.OriginPort)
	data, err := yaml.Marshal(routing)
	if err != nil {
		return fmt.Errorf("encoding tunnel routing: %w", err)
	}
	if err := atomicfile.WriteFile(f.RoutingPath, data, 0644); err != nil {
		return fmt.Errorf("writing tunnel routing: %w", err)
	}
	return nil
}
