// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/lslove10010/argonode/lib/artifact"
	"github.com/lslove10010/argonode/lib/bootstrap"
	"github.com/lslove10010/argonode/lib/config"
	"github.com/lslove10010/argonode/lib/launch"
	"github.com/lslove10010/argonode/lib/process"
	"github.com/lslove10010/argonode/lib/publish"
	"github.com/lslove10010/argonode/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	var (
		configFile  string
		envFile     string
		logLevel    string
		showVersion bool
	)

	flags := pflag.NewFlagSet("argonode", pflag.ContinueOnError)
	flags.StringVar(&configFile, "config", "", "YAML or JSONC configuration file")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file read before the process environment (skipped if missing)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("argonode %s\n", version.Info())
		return nil
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	cfg, err := config.Load(config.Options{
		File:    configFile,
		EnvFile: envFile,
		Environ: os.Environ(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("argonode starting",
		"version", version.Info(),
		"work_dir", cfg.WorkDir,
		"port", cfg.Port,
		"sub_path", cfg.SubPath,
	)

	publisher, err := publish.NewServer(publish.Options{
		SubPath:      cfg.SubPath,
		DocumentPath: cfg.Path(config.SubscriptionFile),
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	launcher := launch.NewLauncher(logger)
	defer launcher.KillAll(5 * time.Second)

	publishErrs := make(chan error, 1)
	go func() {
		publishErrs <- publisher.ListenAndServe(ctx, ":"+strconv.Itoa(cfg.Port))
	}()

	var waitGroup sync.WaitGroup
	waitGroup.Add(1)
	go func() {
		defer waitGroup.Done()
		orchestrator := bootstrap.New(bootstrap.Options{
			Config:     cfg,
			Arch:       artifact.ClassifyArch(runtime.GOARCH),
			HTTPClient: &http.Client{Timeout: cfg.Timing.HTTPTimeout},
			Launcher:   launcher,
			Logger:     logger,
		})
		outcome, err := orchestrator.Run(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("bootstrap failed, publisher keeps serving", "error", err)
			}
			return
		}
		logger.Info("bootstrap complete",
			"host", outcome.Host,
			"restarts", outcome.Restarts,
			"subscription_url", cfg.SubscriptionURL(),
		)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		serveErr = <-publishErrs
	case serveErr = <-publishErrs:
		cancel()
	}
	waitGroup.Wait()
	return serveErr
}
