// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package config builds the immutable configuration value that every
// argonode component receives.
//
// Sources are layered, later ones winning:
//
//  1. [Default] values.
//  2. An optional config file (--config): YAML, or JSON with comments
//     and trailing commas (JSONC).
//  3. A .env file (KEY=value lines). Missing is not an error.
//  4. The process environment, passed in as a slice so that nothing
//     below main reads os.Getenv.
//
// Empty environment values are treated as unset, so `UUID= argonode`
// keeps the default rather than clearing it.
//
// Load validates the result; components may assume a Config they are
// handed is well formed.
package config
