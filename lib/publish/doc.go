// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish serves the subscription document over HTTP.
//
// The server answers two routes: GET /<subPath> returns the current
// subscription document straight from disk (404 until the first one is
// written), and GET / returns a small landing page rendered once from
// embedded markdown. Everything else is 404. When subPath is empty the
// two routes coincide; the document wins once it exists.
//
// The document is read on every request rather than cached, so the
// server never needs to be told when the orchestrator replaces it.
// Responses are gzip-compressed for clients that accept it.
package publish
