// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers for the argonode binary:
// the two places where output is written before the structured logger
// exists or after it can no longer help.
package process
