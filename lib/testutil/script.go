// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteScript writes body as an executable /bin/sh script named name in
// directory and returns its path. Skips the test on platforms without
// a POSIX shell.
func WriteScript(t *testing.T, directory, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixtures need a POSIX shell")
	}
	path := filepath.Join(directory, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("writing script %s: %v", path, err)
	}
	return path
}
