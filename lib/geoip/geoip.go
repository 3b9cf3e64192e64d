// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package geoip labels this host by country and network operator for
// use in node display names.
package geoip

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lslove10010/argonode/lib/netutil"
)

// Unknown is the label when no provider answers usefully.
const Unknown = "Unknown"

// Resolver queries a primary and a fallback lookup service.
type Resolver struct {
	// PrimaryURL answers in the ipapi.co format: country_code, org.
	PrimaryURL string

	// FallbackURL answers in the ip-api.com format: status,
	// countryCode, org.
	FallbackURL string

	Client *http.Client
	Logger *slog.Logger
}

type primaryReply struct {
	CountryCode string `json:"country_code"`
	Org         string `json:"org"`
}

type fallbackReply struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	Org         string `json:"org"`
}

// Lookup returns "<country>_<org>" exactly as the provider reports
// them, or Unknown. It never fails: a provider error only
// moves on to the next provider.
func (r *Resolver) Lookup(ctx context.Context) string {
	if r.PrimaryURL != "" {
		var reply primaryReply
		err := netutil.GetJSON(ctx, r.Client, r.PrimaryURL, &reply)
		if err == nil && reply.CountryCode != "" && reply.Org != "" {
			return label(reply.CountryCode, reply.Org)
		}
		r.Logger.Debug("primary ISP lookup failed", "url", r.PrimaryURL, "error", err)
	}

	if r.FallbackURL != "" {
		var reply fallbackReply
		err := netutil.GetJSON(ctx, r.Client, r.FallbackURL, &reply)
		if err == nil && reply.Status == "success" && reply.CountryCode != "" {
			return label(reply.CountryCode, reply.Org)
		}
		r.Logger.Debug("fallback ISP lookup failed", "url", r.FallbackURL, "error", err)
	}

	r.Logger.Warn("ISP lookup failed, using placeholder label")
	return Unknown
}

func label(country, org string) string {
	return country + "_" + org
}
