// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/trim21/bison-py/lib/config"
	"github.com/trim21/bison-py/lib/fetch"
	"github.com/trim21/bison-py/lib/gnu"
)

// exitError carries a bare exit code for commands that have already
// printed their own diagnostics. main() exits with the code without
// printing a redundant "error:" line.
type exitError struct {
	code int
}

func (e exitError) Error() string { return "" }

// ExitCode returns the process exit code.
func (e exitError) ExitCode() int { return e.code }

// signalContext returns a context cancelled on SIGINT or SIGTERM so a
// long build can be interrupted cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig loads configuration from an explicit --config path, or
// from the environment when the flag was not given.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newMirror builds the GNU mirror client from configuration.
func newMirror(cfg *config.Config, logger *slog.Logger) *gnu.Client {
	return gnu.NewClient(gnu.Config{
		BaseURL: cfg.Build.Mirror,
		Logger:  logger,
	})
}

// newFetchCache opens the download cache under the configured cache
// directory, creating it if needed.
func newFetchCache(cfg *config.Config, logger *slog.Logger) (*fetch.Cache, error) {
	if err := os.MkdirAll(cfg.Paths.Cache, 0o755); err != nil {
		return nil, err
	}
	return fetch.New(fetch.Config{
		Dir:    cfg.Paths.Cache,
		Logger: logger,
	})
}

// resolveVersions determines the bison and m4 versions for a build.
// Bison is discovered from the mirror when not pinned; m4 uses the
// pinned default since it changes rarely and is only a build
// dependency.
func resolveVersions(ctx context.Context, cfg *config.Config, mirror *gnu.Client) (bisonVersion, m4Version string) {
	bisonVersion = cfg.Build.BisonVersion
	if bisonVersion == "" {
		bisonVersion = mirror.LatestVersion(ctx, "bison", gnu.DefaultBisonVersion)
	}
	m4Version = cfg.Build.M4Version
	if m4Version == "" {
		m4Version = gnu.DefaultM4Version
	}
	return bisonVersion, m4Version
}
