// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/payload"
)

// pathCommand returns the "path" command, which resolves the installed
// payload location.
func pathCommand() *cli.Command {
	var configPath string
	var showRoot bool
	var showYacc bool
	var verify string

	return &cli.Command{
		Name:    "path",
		Summary: "Print the location of the installed bison payload",
		Description: `Resolve and print the bundled bison binary's path. Resolution
checks the BISON_BIN_PATH and BISON_BIN_ROOT overrides, then the
directory next to the running executable, then the configured payload
path.

Useful from build scripts that need the bundled bison without going
through the wrapper entry points.`,
		Usage: "bison-py path [flags]",
		Examples: []cli.Example{
			{
				Description: "Print the bison binary path",
				Command:     "bison-py path",
			},
			{
				Description: "Print the payload root instead",
				Command:     "bison-py path --root",
			},
			{
				Description: "Verify the payload reports the expected version",
				Command:     "bison-py path --verify 3.8.2",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("path", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			flagSet.BoolVar(&showRoot, "root", false, "print the payload root directory")
			flagSet.BoolVar(&showYacc, "yacc", false, "print the yacc shim path")
			flagSet.StringVar(&verify, "verify", "", "probe the binary and require this version")
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
			locator := payload.Locator{ConfiguredRoot: cfg.Paths.Payload}

			if showRoot {
				root, err := locator.DataRoot()
				if err != nil {
					return err
				}
				fmt.Println(root)
				return nil
			}
			if showYacc {
				yaccPath, err := locator.YaccPath()
				if err != nil {
					return err
				}
				fmt.Println(yaccPath)
				return nil
			}

			binaryPath, err := locator.BinaryPath()
			if err != nil {
				return err
			}

			if verify != "" {
				ctx, cancel := signalContext()
				defer cancel()

				banner, err := payload.ProbeVersion(ctx, binaryPath)
				if err != nil {
					return fmt.Errorf("probing %s: %w", binaryPath, err)
				}
				if !payload.ReportsVersion(banner, verify) {
					return fmt.Errorf("version mismatch: %s reports %q, want %s",
						binaryPath, banner, verify)
				}
			}

			fmt.Println(binaryPath)
			return nil
		},
	}
}
