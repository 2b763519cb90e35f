// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolchain provides typed access to the external build tools
// the bison pipeline drives: a POSIX shell for configure scripts, make
// for compilation, and strip for the optional binary-size pass. It
// centralizes binary resolution (PATH first, then conventional install
// directories that are often missing from non-login shells) and
// uniform error formatting for failed invocations.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// fallbackBinDirs are checked after PATH lookup fails. Homebrew and
// MacPorts install outside the default PATH of non-interactive shells;
// /usr/local/bin covers hand-installed toolchains on minimal Linux
// images.
var fallbackBinDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/opt/local/bin",
}

// FindBinary resolves a build tool by name, checking PATH first and
// then the conventional fallback directories. Returns the absolute
// path to the binary.
func FindBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	for _, dir := range fallbackBinDirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found on PATH or in %s",
		name, strings.Join(fallbackBinDirs, ", "))
}

// Command describes one external tool invocation.
type Command struct {
	// Dir is the working directory. Required.
	Dir string

	// Env holds extra KEY=value pairs appended to the inherited
	// environment. Later entries win over inherited ones, which is
	// how the builder points bison's configure at the staged m4.
	Env []string

	// Name is the tool to run, resolved via FindBinary.
	Name string

	// Args are the tool arguments.
	Args []string
}

// String renders the invocation for logs and error messages.
func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external tool invocations. The build orchestrator
// depends on this interface so tests can record the command sequence
// without running anything.
type Runner interface {
	Run(ctx context.Context, command Command) error
}

// ExecRunner runs commands via os/exec. Tool stdout and stderr stream
// to the configured writers (configure and make output is the build's
// progress indication); the stderr tail is additionally captured for
// error messages.
type ExecRunner struct {
	// Stdout receives tool standard output. Defaults to os.Stdout.
	Stdout io.Writer

	// Stderr receives tool standard error. Defaults to os.Stderr.
	Stderr io.Writer

	// Logger logs each invocation at debug level. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Run resolves and executes the command, returning an error that
// carries the trimmed stderr tail on failure.
func (r *ExecRunner) Run(ctx context.Context, command Command) error {
	binaryPath, err := FindBinary(command.Name)
	if err != nil {
		return err
	}

	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("running build command",
		"command", command.String(),
		"dir", command.Dir)

	var stderrTail bytes.Buffer
	execCommand := exec.CommandContext(ctx, binaryPath, command.Args...)
	execCommand.Dir = command.Dir
	execCommand.Env = append(os.Environ(), command.Env...)
	execCommand.Stdout = stdout
	execCommand.Stderr = io.MultiWriter(stderr, &stderrTail)

	if err := execCommand.Run(); err != nil {
		return formatError(command, &stderrTail, err)
	}
	return nil
}

// formatError produces the error for a failed invocation, preferring
// the tool's stderr (which contains the actual diagnostic) over the
// generic exec error. Long stderr is trimmed to its final lines.
func formatError(command Command, stderr *bytes.Buffer, err error) error {
	tail := strings.TrimSpace(stderr.String())
	if lines := strings.Split(tail, "\n"); len(lines) > 10 {
		tail = strings.Join(lines[len(lines)-10:], "\n")
	}
	if tail != "" {
		return fmt.Errorf("%s in %s: %w\n%s", command.String(), command.Dir, err, tail)
	}
	return fmt.Errorf("%s in %s: %w", command.String(), command.Dir, err)
}

// Check describes the availability of one build prerequisite.
type Check struct {
	// Name of the tool.
	Name string

	// Path is the resolved location when found.
	Path string

	// Optional marks tools whose absence degrades (strip) rather
	// than breaks the build.
	Optional bool

	// Err is the resolution failure, nil when the tool was found.
	Err error
}

// Prerequisites probes the tools the build pipeline needs. The
// returned slice always has the same order: sh, make, a C compiler,
// strip (optional).
func Prerequisites() []Check {
	checks := []Check{
		{Name: "sh"},
		{Name: "make"},
		{Name: "cc"},
		{Name: "strip", Optional: true},
	}
	for i := range checks {
		path, err := FindBinary(checks[i].Name)
		if err != nil && checks[i].Name == "cc" {
			// Many systems ship gcc or clang without a cc alias.
			for _, alternative := range []string{"gcc", "clang"} {
				if path, err = FindBinary(alternative); err == nil {
					checks[i].Name = alternative
					break
				}
			}
		}
		checks[i].Path = path
		checks[i].Err = err
	}
	return checks
}

// MissingRequired returns the names of required prerequisites that
// could not be resolved.
func MissingRequired(checks []Check) []string {
	var missing []string
	for _, check := range checks {
		if check.Err != nil && !check.Optional {
			missing = append(missing, check.Name)
		}
	}
	return missing
}
