// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package subscription renders the tunnel endpoint as client links and
// assembles them into the subscription document.
//
// Every link uses TLS with the tunnel hostname as SNI and Host header,
// and a websocket transport on the engine's per-protocol path with the
// early-data tag "?ed=2560". The document is the standard base64
// subscription format: the links joined by newlines, with a leading
// and trailing newline, base64-encoded as one block.
package subscription
