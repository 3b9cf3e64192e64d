// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the bootstrap
// sequence.
//
// Every settle delay, discovery backoff and cleanup grace period in
// argonode goes through a Clock so that tests can drive the sequence
// without wall-clock waits. Production code uses Real(); tests use
// Fake() and step time forward explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go orchestrator.Run(ctx)
//	c.WaitForTimers(1)         // the goroutine is now sleeping
//	c.Advance(2 * time.Second) // wake it deterministically
//
// Sleep in this package is context-aware: a cancelled context ends the
// wait early and reports ctx.Err().
package clock
