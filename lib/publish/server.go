// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed page.md
var pageSource []byte

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>argonode</title></head>
<body>
%s</body>
</html>
`

// Options configures a Server.
type Options struct {
	// SubPath is the document route without its leading slash.
	SubPath string

	// DocumentPath is the subscription document on disk.
	DocumentPath string

	Logger *slog.Logger
}

// Server is the publisher's HTTP handler.
type Server struct {
	route        string
	documentPath string
	page         []byte
	handler      http.Handler
	logger       *slog.Logger
}

// NewServer renders the landing page and builds the handler.
func NewServer(options Options) (*Server, error) {
	page, err := renderPage(pageSource)
	if err != nil {
		return nil, err
	}

	server := &Server{
		route:        "/" + strings.TrimPrefix(options.SubPath, "/"),
		documentPath: options.DocumentPath,
		page:         page,
		logger:       options.Logger,
	}

	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(0))
	if err != nil {
		return nil, fmt.Errorf("building gzip wrapper: %w", err)
	}
	server.handler = wrap(http.HandlerFunc(server.dispatch))
	return server, nil
}

func renderPage(source []byte) ([]byte, error) {
	var body bytes.Buffer
	markdown := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := markdown.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("rendering landing page: %w", err)
	}
	return fmt.Appendf(nil, pageTemplate, body.String()), nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case s.route:
		if s.serveDocument(w) {
			return
		}
		if s.route == "/" {
			s.servePage(w)
			return
		}
		http.NotFound(w, r)
	case "/":
		s.servePage(w)
	default:
		http.NotFound(w, r)
	}
}

// serveDocument writes the document and reports whether it existed.
func (s *Server) serveDocument(w http.ResponseWriter) bool {
	data, err := os.ReadFile(s.documentPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		s.logger.Error("reading subscription document", "path", s.documentPath, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return true
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
	return true
}

func (s *Server) servePage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.page)
}

// Serve answers requests on listener until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.Serve(listener)
	}()
	s.logger.Info("publisher listening", "address", listener.Addr().String(), "route", s.route)

	select {
	case err := <-errs:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down publisher: %w", err)
	}
	return nil
}

// ListenAndServe listens on address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	return s.Serve(ctx, listener)
}
