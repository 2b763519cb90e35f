// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/trim21/bison-py/lib/testutil"
)

func TestFindBinaryOnPath(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteExecutable(t, dir, "fake-make", "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", dir)

	path, err := FindBinary("fake-make")
	if err != nil {
		t.Fatalf("FindBinary: %v", err)
	}
	if !strings.HasPrefix(path, dir) {
		t.Errorf("path = %q, want under %q", path, dir)
	}
}

func TestFindBinaryMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := FindBinary("definitely-not-a-real-tool"); err == nil {
		t.Error("FindBinary found a nonexistent tool")
	}
}

func TestExecRunnerStreamsAndSucceeds(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteExecutable(t, dir, "announce",
		"#!/bin/sh\necho configuring \"$1\"\n")
	t.Setenv("PATH", dir+":/bin:/usr/bin")

	var stdout bytes.Buffer
	runner := &ExecRunner{
		Stdout: &stdout,
		Stderr: io.Discard,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	err := runner.Run(context.Background(), Command{
		Dir:  t.TempDir(),
		Name: "announce",
		Args: []string{"--prefix=/opt/payload"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "configuring --prefix=/opt/payload" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecRunnerErrorCarriesStderr(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteExecutable(t, dir, "broken",
		"#!/bin/sh\necho 'configure: error: no acceptable m4 found' >&2\nexit 1\n")
	t.Setenv("PATH", dir+":/bin:/usr/bin")

	runner := &ExecRunner{
		Stdout: io.Discard,
		Stderr: io.Discard,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	err := runner.Run(context.Background(), Command{
		Dir:  t.TempDir(),
		Name: "broken",
	})
	if err == nil {
		t.Fatal("Run succeeded for a failing tool")
	}
	if !strings.Contains(err.Error(), "no acceptable m4 found") {
		t.Errorf("error does not carry stderr: %v", err)
	}
}

func TestExecRunnerEnvOverride(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteExecutable(t, dir, "print-m4", "#!/bin/sh\necho \"$M4\"\n")
	t.Setenv("PATH", dir+":/bin:/usr/bin")
	t.Setenv("M4", "/usr/bin/m4")

	var stdout bytes.Buffer
	runner := &ExecRunner{
		Stdout: &stdout,
		Stderr: io.Discard,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	err := runner.Run(context.Background(), Command{
		Dir:  t.TempDir(),
		Name: "print-m4",
		Env:  []string{"M4=/stage/m4/bin/m4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "/stage/m4/bin/m4" {
		t.Errorf("M4 = %q, want the override", got)
	}
}

func TestMissingRequired(t *testing.T) {
	checks := []Check{
		{Name: "sh", Path: "/bin/sh"},
		{Name: "make", Err: io.EOF},
		{Name: "strip", Optional: true, Err: io.EOF},
	}
	missing := MissingRequired(checks)
	if len(missing) != 1 || missing[0] != "make" {
		t.Errorf("MissingRequired = %v, want [make]", missing)
	}
}
