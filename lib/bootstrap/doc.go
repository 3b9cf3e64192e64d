// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package bootstrap sequences a complete argonode run: from a clean
// working directory to a published subscription document.
//
// [Orchestrator.Run] performs these steps in order, on the calling
// goroutine:
//
//  1. Tell the aggregator to forget the links of the previous run
//     (read from the old subscription document), then empty the
//     working directory.
//  2. For a reserved tunnel with a credentials document, write the
//     credentials and routing files.
//  3. Generate the engine config.
//  4. Resolve and download the binaries for this host's architecture.
//  5. Launch the telemetry agent (if configured), the engine and the
//     tunnel client, each followed by a fixed settle delay, then wait
//     once more for the tunnel to come up.
//  6. Discover the tunnel hostname.
//  7. Look up the ISP label, render the links and write the
//     subscription document.
//  8. Register the document (or the node list) with the aggregator and
//     the project URL with the keep-alive service.
//
// Steps 1 and 8 are best-effort: failures are logged and the run
// continues. Any other failure ends the run with an error, leaving
// whatever processes were already started running; the caller decides
// when to kill them (normally at shutdown, via the launcher).
//
// Independently of the sequence, Run schedules a cleanup that removes
// the binaries, the engine config and the tunnel log after a grace
// period. The running processes keep their open files; nothing on
// disk is needed once they are up. The tunnel binary is the exception
// while discovery runs, since a restart executes it again, so its
// removal waits until discovery returns.
package bootstrap
