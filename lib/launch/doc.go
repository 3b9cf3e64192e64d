// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch starts the external binaries as detached, supervised
// background processes.
//
// Each process is started in its own session (setsid), so it has no
// controlling terminal and does not receive signals aimed at the
// orchestrator's process group. Its standard streams go to /dev/null
// unless [Spec.Output] names a file. Start returns as soon as the
// process exists; nothing waits for it to become ready. Callers use
// fixed settle delays for that.
//
// Every started process is reaped by a background goroutine, so the
// [Handle] always knows whether its process is still alive without
// polling the process table, and killing by handle targets exactly the
// process group that was started rather than anything that happens to
// share its name.
package launch
