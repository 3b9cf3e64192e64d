// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// newLogger returns a text logger when output is a terminal and a JSON
// logger otherwise.
func newLogger(output *os.File, level slog.Level) *slog.Logger {
	return slog.New(newHandler(output, term.IsTerminal(int(output.Fd())), level))
}

func newHandler(output io.Writer, terminal bool, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.NewTextHandler(output, options)
	}
	return slog.NewJSONHandler(output, options)
}

// parseLevel accepts debug, info, warn and error, case-insensitively.
func parseLevel(text string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(text))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", text, err)
	}
	return level, nil
}
