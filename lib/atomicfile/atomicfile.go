// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces files in the working directory as a whole.
//
// The proxy engine config, the subscription document and the reserved
// tunnel files are each owned by a single writer and read by other
// processes (the engine, the tunnel client, the publisher) with no
// locking. Writing to a temporary sibling, syncing it, and renaming it
// over the target means a reader sees either the previous content or
// the new content, never a truncated mix.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile atomically replaces path with data. The temporary file is
// created in the same directory so the rename stays on one filesystem.
// The parent directory must already exist.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := temporary.Name()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := temporary.Chmod(perm); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", path, err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}
	return nil
}
