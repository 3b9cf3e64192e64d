// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package geoip

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func newResolver(primary, fallback string) *Resolver {
	return &Resolver{
		PrimaryURL:  primary,
		FallbackURL: fallback,
		Client:      http.DefaultClient,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestLookupPrimary(t *testing.T) {
	primary := jsonServer(t, http.StatusOK, `{"ip":"203.0.113.7","country_code":"US","org":"Example Networks"}`)
	fallback := jsonServer(t, http.StatusOK, `{"status":"success","countryCode":"DE","org":"Other"}`)

	if got := newResolver(primary.URL, fallback.URL).Lookup(context.Background()); got != "US_Example Networks" {
		t.Errorf("Lookup = %q, want %q", got, "US_Example Networks")
	}
}

func TestLookupFallback(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		primary string
	}{
		{"primary error status", http.StatusTooManyRequests, `{"error":true,"reason":"RateLimited"}`},
		{"primary missing fields", http.StatusOK, `{"error":true}`},
		{"primary not json", http.StatusOK, `<html>`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			primary := jsonServer(t, test.status, test.primary)
			fallback := jsonServer(t, http.StatusOK, `{"status":"success","countryCode":"DE","org":"Hetzner Online GmbH"}`)

			if got := newResolver(primary.URL, fallback.URL).Lookup(context.Background()); got != "DE_Hetzner Online GmbH" {
				t.Errorf("Lookup = %q, want %q", got, "DE_Hetzner Online GmbH")
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	primary := jsonServer(t, http.StatusInternalServerError, ``)
	fallback := jsonServer(t, http.StatusOK, `{"status":"fail","message":"private range"}`)

	if got := newResolver(primary.URL, fallback.URL).Lookup(context.Background()); got != Unknown {
		t.Errorf("Lookup = %q, want %q", got, Unknown)
	}
}

func TestLookupUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	address := server.URL
	server.Close()

	if got := newResolver(address, address).Lookup(context.Background()); got != Unknown {
		t.Errorf("Lookup = %q, want %q", got, Unknown)
	}
}
