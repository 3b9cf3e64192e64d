// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package artifact resolves and downloads the prebuilt executables the
// orchestrator launches: the proxy engine, the tunnel client, and
// optionally one of two telemetry agent builds.
//
// Resolution is a pure mapping from (architecture family, telemetry
// settings) to an ordered list of [Spec] values. Every Spec gets a
// fresh random file name so that binaries from a previous run, or from
// another tenant sharing the host, never collide with this run's, and
// so that the running processes cannot be picked out by a fixed name.
//
// [Fetcher.FetchAll] downloads a resolved batch concurrently and is
// all-or-nothing: any failure fails the batch, and the failed
// download's partial file is removed.
package artifact
