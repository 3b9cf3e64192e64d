// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// argonode bootstraps a proxy engine behind a tunnel on a single
// unprivileged host and publishes the resulting subscription document.
//
// On start it begins serving HTTP on the configured port, then runs the
// bootstrap sequence (download, configure, launch, discover, publish).
// A failed bootstrap is logged; the HTTP endpoint keeps serving until
// the process receives SIGINT or SIGTERM, at which point every process
// argonode started is killed.
//
// Configuration comes from built-in defaults, an optional YAML or JSONC
// file (--config), a .env file (--env-file) and the process
// environment, in increasing order of precedence.
//
// Usage:
//
//	argonode [--config FILE] [--env-file FILE] [--log-level LEVEL]
//	argonode --version
package main
