// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/lslove10010/argonode/lib/binhash"
	"github.com/lslove10010/argonode/lib/netutil"
)

// Fetcher downloads artifacts to local storage.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

// NewFetcher returns a Fetcher using client for downloads.
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger}
}

// FetchAll downloads every spec concurrently and marks each file
// executable. It waits for all downloads to finish and returns the
// joined errors of the ones that failed; a nil return means every
// artifact is on disk.
func (f *Fetcher) FetchAll(ctx context.Context, specs []Spec) error {
	errs := make([]error, len(specs))

	var waitGroup sync.WaitGroup
	for index, spec := range specs {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			errs[index] = f.Fetch(ctx, spec)
		}()
	}
	waitGroup.Wait()

	return errors.Join(errs...)
}

// Fetch streams one artifact to spec.Path and sets mode 0755. On any
// failure the partially written file is removed.
func (f *Fetcher) Fetch(ctx context.Context, spec Spec) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", spec.Role, err)
	}

	response, err := f.client.Do(request)
	if err != nil {
		return fmt.Errorf("fetching %s from %s: %w", spec.Role, spec.URL, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: %w", spec.Role,
			&netutil.StatusError{URL: spec.URL, StatusCode: response.StatusCode})
	}

	digest, size, err := writeExecutable(spec.Path, response.Body)
	if err == nil {
		err = verifyOnDisk(spec.Path, digest)
	}
	if err != nil {
		os.Remove(spec.Path)
		return fmt.Errorf("saving %s to %s: %w", spec.Role, spec.Path, err)
	}

	f.logger.Info("artifact downloaded",
		"role", spec.Role,
		"name", spec.Name,
		"bytes", size,
		"blake3", binhash.FormatDigest(digest),
	)
	return nil
}

func writeExecutable(path string, body io.Reader) (binhash.Digest, int64, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return binhash.Digest{}, 0, err
	}

	hasher := binhash.New()
	size, err := io.Copy(io.MultiWriter(file, hasher), body)
	if err != nil {
		file.Close()
		return binhash.Digest{}, 0, err
	}
	if err := file.Close(); err != nil {
		return binhash.Digest{}, 0, err
	}

	// OpenFile's mode is filtered by the umask; set it explicitly.
	if err := os.Chmod(path, 0755); err != nil {
		return binhash.Digest{}, 0, err
	}
	return binhash.Sum(hasher), size, nil
}

// verifyOnDisk rehashes the file at path and compares it with the
// digest computed while streaming it in.
func verifyOnDisk(path string, want binhash.Digest) error {
	got, err := binhash.HashFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("content on disk (blake3 %s) differs from download (blake3 %s)",
			binhash.FormatDigest(got), binhash.FormatDigest(want))
	}
	return nil
}
