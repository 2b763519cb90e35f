// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// The bison-py command packages GNU Bison as a platform-tagged Python
// wheel: it discovers releases, fetches and compiles the sources, and
// packs the resulting install tree with Python wrapper shims.
package main

import (
	"os"

	"github.com/trim21/bison-py/cmd/bison-py/commands"
	"github.com/trim21/bison-py/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own diagnostics (like doctor)
		// return an error carrying the desired exit code. Don't print
		// a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
