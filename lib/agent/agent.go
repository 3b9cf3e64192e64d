// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"net"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lslove10010/argonode/lib/atomicfile"
)

// tlsPorts are the ports on which the agent connects with TLS.
var tlsPorts = map[int]bool{
	443:  true,
	8443: true,
	2096: true,
	2087: true,
	2083: true,
	2053: true,
}

// UsesTLS reports whether port is one of the TLS ports.
func UsesTLS(port int) bool {
	return tlsPorts[port]
}

// LegacyArgs returns the flag set for the legacy agent connecting to
// server:port with key.
func LegacyArgs(server string, port int, key string) []string {
	args := []string{"-s", net.JoinHostPort(server, strconv.Itoa(port)), "-p", key}
	if UsesTLS(port) {
		args = append(args, "--tls")
	}
	return append(args,
		"--disable-auto-update",
		"--report-delay", "4",
		"--skip-conn",
		"--skip-procs",
	)
}

// Args returns the flag set for the YAML-configured agent.
func Args(configPath string) []string {
	return []string{"-c", configPath}
}

// Config is the YAML-configured agent's settings file. Field order
// follows the agent's own documentation.
type Config struct {
	ClientSecret          string `yaml:"client_secret"`
	Debug                 bool   `yaml:"debug"`
	DisableAutoUpdate     bool   `yaml:"disable_auto_update"`
	DisableCommandExecute bool   `yaml:"disable_command_execute"`
	DisableForceUpdate    bool   `yaml:"disable_force_update"`
	DisableNAT            bool   `yaml:"disable_nat"`
	DisableSendQuery      bool   `yaml:"disable_send_query"`
	GPU                   bool   `yaml:"gpu"`
	InsecureTLS           bool   `yaml:"insecure_tls"`
	IPReportPeriod        int    `yaml:"ip_report_period"`
	ReportDelay           int    `yaml:"report_delay"`
	Server                string `yaml:"server"`
	SkipConnectionCount   bool   `yaml:"skip_connection_count"`
	SkipProcsCount        bool   `yaml:"skip_procs_count"`
	Temperature           bool   `yaml:"temperature"`
	TLS                   bool   `yaml:"tls"`
	UseGiteeToUpgrade     bool   `yaml:"use_gitee_to_upgrade"`
	UseIPv6CountryCode    bool   `yaml:"use_ipv6_country_code"`
	UUID                  string `yaml:"uuid"`
}

// NewConfig returns the settings for an agent reporting to server
// ("host:port") with key, identified by id. A server without a port
// is accepted and treated as plaintext.
func NewConfig(server, key, id string) Config {
	return Config{
		ClientSecret:          key,
		DisableAutoUpdate:     true,
		DisableCommandExecute: false,
		DisableForceUpdate:    true,
		InsecureTLS:           true,
		IPReportPeriod:        1800,
		ReportDelay:           4,
		Server:                server,
		SkipConnectionCount:   true,
		SkipProcsCount:        true,
		TLS:                   UsesTLS(serverPort(server)),
		UUID:                  id,
	}
}

// serverPort extracts the port from "host:port", or returns 0.
func serverPort(server string) int {
	_, portText, err := net.SplitHostPort(server)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return 0
	}
	return port
}

// Write renders cfg as YAML and atomically replaces path with it.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding agent config: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing agent config: %w", err)
	}
	return nil
}
