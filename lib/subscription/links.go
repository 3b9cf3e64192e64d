// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package subscription

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/lslove10010/argonode/lib/atomicfile"
	"github.com/lslove10010/argonode/lib/xray"
)

// earlyData is the query tag appended to every websocket path.
const earlyData = "?ed=2560"

// fingerprint is the TLS client fingerprint links ask for.
const fingerprint = "firefox"

// Node is everything a set of links is built from.
type Node struct {
	// UUID is the identity credential.
	UUID string

	// Address and Port are what clients dial: an edge IP or the
	// tunnel hostname itself.
	Address string
	Port    int

	// Host is the tunnel hostname, used for SNI and the Host header.
	Host string

	// Name is the display name, see DisplayName.
	Name string
}

// Links holds the three rendered URIs of one node.
type Links struct {
	VLESS  string
	VMess  string
	Trojan string
}

// All returns the links in document order.
func (l Links) All() []string {
	return []string{l.VLESS, l.VMess, l.Trojan}
}

// DisplayName joins the configured prefix and the ISP label with a
// hyphen, or returns the label alone when there is no prefix.
func DisplayName(prefix, isp string) string {
	if prefix == "" {
		return isp
	}
	return prefix + "-" + isp
}

// Build renders node as links. It is deterministic.
func Build(node Node) (Links, error) {
	vmess, err := vmessLink(node)
	if err != nil {
		return Links{}, err
	}
	return Links{
		VLESS:  sharedLink("vless", node, "encryption=none&", xray.VLESSPath),
		VMess:  vmess,
		Trojan: sharedLink("trojan", node, "", xray.TrojanPath),
	}, nil
}

// sharedLink renders the URI form vless and trojan have in common.
// The query is written by hand to keep the parameter order stable.
func sharedLink(scheme string, node Node, prefix, path string) string {
	var builder strings.Builder
	builder.WriteString(scheme)
	builder.WriteString("://")
	builder.WriteString(node.UUID)
	builder.WriteByte('@')
	builder.WriteString(net.JoinHostPort(node.Address, strconv.Itoa(node.Port)))
	builder.WriteByte('?')
	builder.WriteString(prefix)
	builder.WriteString("security=tls&sni=")
	builder.WriteString(url.QueryEscape(node.Host))
	builder.WriteString("&fp=" + fingerprint + "&type=ws&host=")
	builder.WriteString(url.QueryEscape(node.Host))
	builder.WriteString("&path=")
	builder.WriteString(url.QueryEscape(path + earlyData))
	builder.WriteByte('#')
	builder.WriteString(url.PathEscape(node.Name))
	return builder.String()
}

// vmessPayload is the JSON object inside a vmess link. Field order is
// part of the de facto format.
type vmessPayload struct {
	V           string `json:"v"`
	PS          string `json:"ps"`
	Add         string `json:"add"`
	Port        string `json:"port"`
	ID          string `json:"id"`
	AID         string `json:"aid"`
	Scy         string `json:"scy"`
	Net         string `json:"net"`
	Type        string `json:"type"`
	Host        string `json:"host"`
	Path        string `json:"path"`
	TLS         string `json:"tls"`
	SNI         string `json:"sni"`
	ALPN        string `json:"alpn"`
	Fingerprint string `json:"fp"`
}

func vmessLink(node Node) (string, error) {
	payload := vmessPayload{
		V:           "2",
		PS:          node.Name,
		Add:         node.Address,
		Port:        strconv.Itoa(node.Port),
		ID:          node.UUID,
		AID:         "0",
		Scy:         "none",
		Net:         "ws",
		Type:        "none",
		Host:        node.Host,
		Path:        xray.VMessPath + earlyData,
		TLS:         "tls",
		SNI:         node.Host,
		ALPN:        "",
		Fingerprint: fingerprint,
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		return "", fmt.Errorf("encoding vmess payload: %w", err)
	}
	encoded := bytes.TrimSuffix(buffer.Bytes(), []byte("\n"))
	return "vmess://" + base64.StdEncoding.EncodeToString(encoded), nil
}

// Document encodes links as a subscription document.
func Document(links []string) string {
	plain := "\n" + strings.Join(links, "\n") + "\n"
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// Decode returns the links in a subscription document, skipping blank
// lines.
func Decode(document []byte) ([]string, error) {
	plain, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(document)))
	if err != nil {
		return nil, fmt.Errorf("decoding subscription document: %w", err)
	}
	var links []string
	for _, line := range strings.Split(string(plain), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			links = append(links, line)
		}
	}
	return links, nil
}

// Write atomically replaces path with document.
func Write(path, document string) error {
	if err := atomicfile.WriteFile(path, []byte(document), 0644); err != nil {
		return fmt.Errorf("writing subscription document: %w", err)
	}
	return nil
}
