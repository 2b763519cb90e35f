// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package payload resolves the installed bison payload at run time.
// Resolution order mirrors the packaged Python runtime: explicit
// environment overrides first, then the payload directory shipped next
// to the executable, then the configured payload path. The overrides
// exist so CI and downstream build systems can point the shims at an
// arbitrary bison without reinstalling.
package payload

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Environment overrides honored by all resolution entry points.
const (
	// EnvRoot overrides the payload root directory.
	EnvRoot = "BISON_BIN_ROOT"

	// EnvBinary overrides the resolved bison binary path directly,
	// bypassing root resolution entirely.
	EnvBinary = "BISON_BIN_PATH"
)

// payloadDirName is the payload directory shipped alongside installed
// binaries and inside the wheel's package tree.
const payloadDirName = "_bison"

// ErrNotInstalled is wrapped by resolution failures so callers can
// distinguish "payload missing" from other errors.
var ErrNotInstalled = errors.New("bison payload is not installed")

// Locator resolves payload paths. The zero value resolves only via
// environment overrides and the executable-relative payload.
type Locator struct {
	// ConfiguredRoot is the payload root from configuration, used
	// when no environment override or executable-relative payload
	// exists.
	ConfiguredRoot string
}

// DataRoot returns the payload root directory containing bin/ and
// share/.
func (l Locator) DataRoot() (string, error) {
	if override := os.Getenv(EnvRoot); override != "" {
		return override, nil
	}

	if executable, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(executable), payloadDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	if l.ConfiguredRoot != "" {
		return l.ConfiguredRoot, nil
	}

	return "", fmt.Errorf("%w: set %s or run `bison-py build`", ErrNotInstalled, EnvRoot)
}

// BinaryPath returns the path to the bundled bison executable.
func (l Locator) BinaryPath() (string, error) {
	if override := os.Getenv(EnvBinary); override != "" {
		return override, nil
	}

	root, err := l.DataRoot()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(root, "bin", "bison")
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("%w: no bison binary at %s", ErrNotInstalled, candidate)
	}
	return candidate, nil
}

// YaccPath returns the path to the yacc compatibility wrapper, or an
// ErrNotInstalled-wrapped error if the payload does not ship one.
func (l Locator) YaccPath() (string, error) {
	root, err := l.DataRoot()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(root, "bin", "yacc")
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("%w: no yacc wrapper at %s", ErrNotInstalled, candidate)
	}
	return candidate, nil
}

// EnsureExecutable repairs a missing executable bit on the resolved
// binary. Archive-based installers occasionally lose mode bits; this
// keeps the failure mode from being a confusing EACCES at exec time.
func EnsureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm()&0o111 != 0 {
		return nil
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o755); err != nil {
		return fmt.Errorf("restoring executable bit on %s: %w", path, err)
	}
	return nil
}

// ProbeVersion runs the binary with --version and returns the first
// output line (e.g. "bison (GNU Bison) 3.8.2").
func ProbeVersion(ctx context.Context, binary string) (string, error) {
	var stdout bytes.Buffer
	command := exec.CommandContext(ctx, binary, "--version")
	command.Stdout = &stdout
	if err := command.Run(); err != nil {
		return "", fmt.Errorf("probing %s --version: %w", binary, err)
	}

	scanner := bufio.NewScanner(&stdout)
	if !scanner.Scan() {
		return "", fmt.Errorf("%s --version produced no output", binary)
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// ReportsVersion reports whether a --version banner announces the
// given release (as a whole dotted component, so 3.8 does not match
// 3.8.2).
func ReportsVersion(banner, version string) bool {
	fields := strings.Fields(banner)
	for _, field := range fields {
		if field == version {
			return true
		}
	}
	return false
}
