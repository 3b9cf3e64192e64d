// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the small HTTP client helpers shared by the
// geo lookup and registry clients.
//
// Response bodies are read through a limit of MaxResponseSize. The
// remote services argonode talks to (ISP lookup, node aggregator,
// keep-alive registration) all answer with a few hundred bytes of JSON;
// the bound only exists so that a misbehaving endpoint cannot make the
// bootstrap process allocate without limit. Artifact downloads stream
// with io.Copy and do not go through these helpers.
package netutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseSize bounds JSON API response reads: 1 MiB.
const MaxResponseSize int64 = 1 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a response body (up to MaxResponseSize bytes)
// and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an error response body for use in a diagnostic
// message. Read errors are ignored: a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}

// StatusError is returned by GetJSON and PostJSON for non-2xx replies.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
}

// GetJSON issues a GET request and decodes the JSON reply into v.
func GetJSON(ctx context.Context, client *http.Client, url string, v any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: response.StatusCode, Body: ErrorBody(response.Body)}
	}
	if err := DecodeResponse(response.Body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// PostJSON marshals payload, POSTs it to url, and returns the reply
// body. Any non-2xx status is reported as a *StatusError.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request for %s: %w", url, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: response.StatusCode, Body: ErrorBody(response.Body)}
	}
	return ReadResponse(response.Body)
}
