// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/lslove10010/argonode/lib/netutil"
)

var nodePattern = regexp.MustCompile(`(vless|vmess|trojan|hysteria2|tuic)://`)

// Client calls the aggregator at UploadURL and the keep-alive service
// at KeepaliveURL.
type Client struct {
	UploadURL    string
	KeepaliveURL string
	HTTP         *http.Client
}

// AddSubscriptions registers subscriptionURL with the aggregator.
func (c *Client) AddSubscriptions(ctx context.Context, subscriptionURL string) error {
	payload := struct {
		Subscription []string `json:"subscription"`
	}{Subscription: []string{subscriptionURL}}

	if _, err := netutil.PostJSON(ctx, c.HTTP, c.endpoint("/api/add-subscriptions"), payload); err != nil {
		return fmt.Errorf("adding subscription: %w", err)
	}
	return nil
}

// AddNodes registers links with the aggregator.
func (c *Client) AddNodes(ctx context.Context, nodes []string) error {
	if _, err := netutil.PostJSON(ctx, c.HTTP, c.endpoint("/api/add-nodes"), nodesPayload{Nodes: nodes}); err != nil {
		return fmt.Errorf("adding nodes: %w", err)
	}
	return nil
}

// DeleteNodes removes links a previous run registered.
func (c *Client) DeleteNodes(ctx context.Context, nodes []string) error {
	if _, err := netutil.PostJSON(ctx, c.HTTP, c.endpoint("/api/delete-nodes"), nodesPayload{Nodes: nodes}); err != nil {
		return fmt.Errorf("deleting nodes: %w", err)
	}
	return nil
}

// Keepalive asks the keep-alive service to visit projectURL.
func (c *Client) Keepalive(ctx context.Context, projectURL string) error {
	payload := struct {
		URL string `json:"url"`
	}{URL: projectURL}

	if _, err := netutil.PostJSON(ctx, c.HTTP, c.KeepaliveURL, payload); err != nil {
		return fmt.Errorf("registering keep-alive: %w", err)
	}
	return nil
}

type nodesPayload struct {
	Nodes []string `json:"nodes"`
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.UploadURL, "/") + path
}

// FilterNodes returns the lines of text that contain a link of a
// supported scheme, trimmed, in order.
func FilterNodes(text []byte) []string {
	var nodes []string
	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if nodePattern.MatchString(line) {
			nodes = append(nodes, line)
		}
	}
	return nodes
}

// ReadNodes reads path and filters it with FilterNodes. A missing file
// yields no nodes.
func ReadNodes(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading node list: %w", err)
	}
	return FilterNodes(data), nil
}
