// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// The bison command is a pass-through shim: it locates the bundled
// bison binary and replaces itself with it. Arguments and environment
// are passed through unchanged.
package main

import (
	"os"

	"github.com/trim21/bison-py/lib/payload"
	"github.com/trim21/bison-py/lib/process"
)

func main() {
	locator := payload.Locator{}
	binary, err := locator.BinaryPath()
	if err != nil {
		process.Fatal(err)
	}

	argv := append([]string{"bison"}, os.Args[1:]...)
	if err := payload.Exec(binary, argv, os.Environ()); err != nil {
		process.Fatal(err)
	}
}
