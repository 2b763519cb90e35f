// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/gnu"
)

// discoverCommand returns the "discover" command, which resolves the
// newest bison release on the GNU mirror.
func discoverCommand() *cli.Command {
	var configPath string
	var all bool
	var project string

	return &cli.Command{
		Name:    "discover",
		Summary: "Resolve the newest bison release on the GNU mirror",
		Description: `Query the GNU mirror's release index and print the newest bison
version. Falls back to the pinned default when the mirror is
unreachable, so the command always prints a usable version.`,
		Usage: "bison-py discover [flags]",
		Examples: []cli.Example{
			{
				Description: "Print the newest bison version",
				Command:     "bison-py discover",
			},
			{
				Description: "List every published version in release order",
				Command:     "bison-py discover --all",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("discover", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			flagSet.BoolVar(&all, "all", false, "list all published versions, oldest first")
			flagSet.StringVar(&project, "project", "bison", "GNU project to query")
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

			ctx, cancel := signalContext()
			defer cancel()

			if all {
				versions, err := mirror.Versions(ctx, project)
				if err != nil {
					return fmt.Errorf("listing %s versions: %w", project, err)
				}
				for _, v := range versions {
					fmt.Println(v)
				}
				return nil
			}

			fallback := gnu.DefaultBisonVersion
			if project == "m4" {
				fallback = gnu.DefaultM4Version
			}
			fmt.Println(mirror.LatestVersion(ctx, project, fallback))
			return nil
		},
	}
}
