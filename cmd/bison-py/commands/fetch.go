// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/gnu"
)

// fetchCommand returns the "fetch" command, which downloads the bison
// and m4 source tarballs into the local cache.
func fetchCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "fetch",
		Summary: "Download the bison and m4 source tarballs",
		Description: `Download the bison and m4 release tarballs from the GNU mirror into
the local cache. Cached copies are verified against recorded digests
and reused; corrupted files are re-downloaded.

Versions come from the config file, the BISON_VERSION and M4_VERSION
environment variables, or mirror discovery, in that order of
precedence.`,
		Usage: "bison-py fetch [flags]",
		Examples: []cli.Example{
			{
				Description: "Fetch both tarballs for the configured versions",
				Command:     "bison-py fetch",
			},
			{
				Description: "Pin the bison version for this run",
				Command:     "BISON_VERSION=3.8.2 bison-py fetch",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := cli.NewLogger()
			mirror := newMirror(cfg, logger)
			cache, err := newFetchCache(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			bisonVersion, m4Version := resolveVersions(ctx, cfg, mirror)

			for _, target := range []struct {
				project string
				version string
			}{
				{"m4", m4Version},
				{"bison", bisonVersion},
			} {
				name := gnu.TarballName(target.project, target.version, cfg.Build.TarballFormat)
				url := mirror.DownloadURL(target.project, target.version, cfg.Build.TarballFormat)
				path, err := cache.Fetch(ctx, url, name)
				if err != nil {
					return fmt.Errorf("fetching %s: %w", name, err)
				}
				fmt.Println(path)
			}
			return nil
		},
	}
}
