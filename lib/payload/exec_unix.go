// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package payload

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Exec replaces the current process with the binary at path, passing
// argv and the current environment through unchanged. argv[0] is
// conventionally the program name the target sees. Only returns on
// failure.
func Exec(path string, argv []string, env []string) error {
	if err := EnsureExecutable(path); err != nil {
		return err
	}
	if err := unix.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
