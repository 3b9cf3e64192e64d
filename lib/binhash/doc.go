// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of downloaded artifacts.
//
// The fetcher hashes each executable while it streams to disk and logs
// the digest next to the artifact's randomized name, so an operator can
// tell from the log which upstream build was actually launched.
//
//   - [New] returns a streaming hasher for use with io.MultiWriter
//   - [HashFile] hashes a file already on disk with constant memory
//   - [FormatDigest] and [ParseDigest] convert to and from hex
package binhash
