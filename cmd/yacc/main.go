// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// The yacc command is a pass-through shim for the bundled yacc
// wrapper. When the payload ships no yacc script, it falls back to
// running bison in yacc-compatible mode (-y).
package main

import (
	"errors"
	"os"

	"github.com/trim21/bison-py/lib/payload"
	"github.com/trim21/bison-py/lib/process"
)

func main() {
	locator := payload.Locator{}

	yaccPath, err := locator.YaccPath()
	if err == nil {
		argv := append([]string{"yacc"}, os.Args[1:]...)
		if err := payload.Exec(yaccPath, argv, os.Environ()); err != nil {
			process.Fatal(err)
		}
		return
	}
	if !errors.Is(err, payload.ErrNotInstalled) {
		process.Fatal(err)
	}

	binary, err := locator.BinaryPath()
	if err != nil {
		process.Fatal(err)
	}
	argv := append([]string{"bison", "-y"}, os.Args[1:]...)
	if err := payload.Exec(binary, argv, os.Environ()); err != nil {
		process.Fatal(err)
	}
}
