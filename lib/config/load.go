// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Options selects the configuration sources for Load.
type Options struct {
	// File is an optional YAML (.yaml, .yml) or JSONC (.json, .jsonc)
	// config file. Empty skips it; a named file that does not exist is
	// an error.
	File string

	// EnvFile is an optional KEY=value file. A missing file is
	// skipped silently.
	EnvFile string

	// Environ is the process environment in os.Environ form.
	Environ []string
}

// Load builds a Config from defaults and the sources in options, then
// validates it.
func Load(options Options) (Config, error) {
	cfg := Default()

	if options.File != "" {
		if err := loadFile(options.File, &cfg); err != nil {
			return Config{}, err
		}
	}

	variables := map[string]string{}
	if options.EnvFile != "" {
		fromFile, err := ReadEnvFile(options.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
		for key, value := range fromFile {
			variables[key] = value
		}
	}
	for key, value := range ParseEnviron(options.Environ) {
		variables[key] = value
	}
	if err := applyEnv(&cfg, variables); err != nil {
		return Config{}, err
	}

	cfg.SubPath = strings.TrimPrefix(cfg.SubPath, "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported extension (want .yaml, .yml, .json or .jsonc)", path)
	}
	return nil
}

// ReadEnvFile parses a .env file. Blank lines and lines starting with
// # are skipped; one layer of matching single or double quotes is
// stripped from values.
func ReadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	variables := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		variables[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return variables, nil
}

// ParseEnviron converts os.Environ-style entries into a map.
func ParseEnviron(environ []string) map[string]string {
	variables := make(map[string]string, len(environ))
	for _, entry := range environ {
		if key, value, found := strings.Cut(entry, "="); found {
			variables[key] = value
		}
	}
	return variables
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return value
}

func applyEnv(cfg *Config, variables map[string]string) error {
	textFields := []struct {
		key    string
		target *string
	}{
		{"FILE_PATH", &cfg.WorkDir},
		{"SUB_PATH", &cfg.SubPath},
		{"UUID", &cfg.UUID},
		{"NEZHA_SERVER", &cfg.Telemetry.Server},
		{"NEZHA_KEY", &cfg.Telemetry.Key},
		{"ARGO_DOMAIN", &cfg.Tunnel.Domain},
		{"ARGO_AUTH", &cfg.Tunnel.Auth},
		{"CFIP", &cfg.Links.Address},
		{"NAME", &cfg.Links.Name},
		{"UPLOAD_URL", &cfg.Registry.UploadURL},
		{"PROJECT_URL", &cfg.Registry.ProjectURL},
		{"KEEPALIVE_URL", &cfg.Registry.KeepaliveURL},
		{"ARTIFACT_MIRROR", &cfg.Artifacts.Mirror},
	}
	for _, entry := range textFields {
		if value := variables[entry.key]; value != "" {
			*entry.target = value
		}
	}

	integerFields := []struct {
		key    string
		target *int
	}{
		{"PORT", &cfg.Port},
		// SERVER_PORT wins over PORT, so it is applied second.
		{"SERVER_PORT", &cfg.Port},
		{"NEZHA_PORT", &cfg.Telemetry.Port},
		{"ARGO_PORT", &cfg.Tunnel.OriginPort},
		{"CFPORT", &cfg.Links.Port},
		{"DISCOVERY_RETRIES", &cfg.Discovery.MaxRestarts},
	}
	for _, entry := range integerFields {
		value := variables[entry.key]
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s=%q: not an integer", entry.key, value)
		}
		*entry.target = parsed
	}

	if value := variables["AUTO_ACCESS"]; value != "" {
		cfg.Registry.AutoAccess = value == "true"
	}
	return nil
}
