// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so individual tests never block forever on a goroutine that
// failed to report. [WriteScript] drops an executable shell script into
// a test directory; the launcher, fetcher and orchestrator tests use it
// to stand in for the proxy engine, tunnel client and telemetry agent.
// [Eventually] polls a condition with a wall-clock deadline for tests
// that observe real detached processes.
//
// All helpers call t.Fatalf on failure.
package testutil
