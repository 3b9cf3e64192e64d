// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry talks to the remote node aggregator and the
// keep-alive service.
//
// The aggregator exposes three JSON endpoints under its base URL:
// /api/add-subscriptions registers a subscription URL, /api/add-nodes
// registers individual links, and /api/delete-nodes removes links a
// previous run registered. The keep-alive service takes the public
// project URL and periodically visits it.
//
// Every call is best-effort from the orchestrator's point of view: the
// errors returned here are logged and never stop a bootstrap.
package registry
