// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for bison-py
// commands. These centralize the raw stderr output that happens before
// the structured logger exists or after main() has decided to exit.
package process

import (
	"fmt"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
