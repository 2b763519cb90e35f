// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/version"
)

// Root builds and returns the complete bison-py command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bison-py",
		Description: `bison-py: package GNU Bison as a Python wheel.

Fetch upstream bison and m4 release tarballs, compile them into a
relocatable install tree, and pack the result into a platform-tagged
wheel with bison and yacc entry points.`,
		Subcommands: []*cli.Command{
			discoverCommand(),
			fetchCommand(),
			buildCommand(),
			packCommand(),
			pathCommand(),
			doctorCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("bison-py %s\n", version.Full())
					return nil
				},
			},
		},
	}
}
