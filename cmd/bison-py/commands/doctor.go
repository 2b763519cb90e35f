// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/payload"
	"github.com/trim21/bison-py/lib/toolchain"
)

// doctorCommand returns the "doctor" command, which diagnoses the
// build environment and any installed payload.
func doctorCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "doctor",
		Summary: "Diagnose the build environment and installed payload",
		Description: `Check everything a build needs: the shell, make, a C compiler, and
strip, plus the state of the configured payload tree. For each failing
check, reports what is missing so the operator knows what to install.

Exits non-zero when a required build tool is missing. A missing
payload is reported but does not fail the command, since a fresh
machine has not built one yet.`,
		Usage: "bison-py doctor [flags]",
		Examples: []cli.Example{
			{
				Description: "Check build environment health",
				Command:     "bison-py doctor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
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

			checks := toolchain.Prerequisites()
			for _, check := range checks {
				switch {
				case check.Err == nil:
					fmt.Printf("ok       %-8s %s\n", check.Name, check.Path)
				case check.Optional:
					fmt.Printf("warn     %-8s not found (optional): %v\n", check.Name, check.Err)
				default:
					fmt.Printf("MISSING  %-8s %v\n", check.Name, check.Err)
				}
			}

			locator := payload.Locator{ConfiguredRoot: cfg.Paths.Payload}
			binaryPath, err := locator.BinaryPath()
			switch {
			case err == nil:
				fmt.Printf("ok       payload  %s\n", binaryPath)
			default:
				fmt.Printf("warn     payload  not installed: %v\n", err)
			}

			if missing := toolchain.MissingRequired(checks); len(missing) > 0 {
				return exitError{code: 1}
			}
			return nil
		},
	}
}
