// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/trim21/bison-py/lib/testutil"
)

func clearOverrides(t *testing.T) {
	t.Helper()
	t.Setenv(EnvRoot, "")
	t.Setenv(EnvBinary, "")
	os.Unsetenv(EnvRoot)
	os.Unsetenv(EnvBinary)
}

func TestDataRootHonorsEnvOverride(t *testing.T) {
	clearOverrides(t)
	root := testutil.WritePayloadTree(t, t.TempDir(), "3.8.2")
	t.Setenv(EnvRoot, root)

	got, err := Locator{}.DataRoot()
	if err != nil {
		t.Fatalf("DataRoot: %v", err)
	}
	if got != root {
		t.Errorf("DataRoot = %q, want %q", got, root)
	}
}

func TestDataRootFallsBackToConfiguredRoot(t *testing.T) {
	clearOverrides(t)
	root := testutil.WritePayloadTree(t, t.TempDir(), "3.8.2")

	got, err := Locator{ConfiguredRoot: root}.DataRoot()
	if err != nil {
		t.Fatalf("DataRoot: %v", err)
	}
	if got != root {
		t.Errorf("DataRoot = %q, want %q", got, root)
	}
}

func TestDataRootErrorWhenUnresolvable(t *testing.T) {
	clearOverrides(t)
	_, err := Locator{}.DataRoot()
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("DataRoot error = %v, want ErrNotInstalled", err)
	}
}

func TestBinaryPathHonorsDirectOverride(t *testing.T) {
	clearOverrides(t)
	t.Setenv(EnvBinary, "/opt/custom/bison")

	got, err := Locator{}.BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath: %v", err)
	}
	if got != "/opt/custom/bison" {
		t.Errorf("BinaryPath = %q", got)
	}
}

func TestBinaryPathResolvesUnderRoot(t *testing.T) {
	clearOverrides(t)
	root := testutil.WritePayloadTree(t, t.TempDir(), "3.8.2")
	t.Setenv(EnvRoot, root)

	got, err := Locator{}.BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath: %v", err)
	}
	if want := filepath.Join(root, "bin", "bison"); got != want {
		t.Errorf("BinaryPath = %q, want %q", got, want)
	}

	info, err := os.Stat(got)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("resolved binary is not executable")
	}
}

func TestBinaryPathMissingBinary(t *testing.T) {
	clearOverrides(t)
	t.Setenv(EnvRoot, t.TempDir())

	_, err := Locator{}.BinaryPath()
	if !errors.Is(err, ErrNotInstalled) {
		t.Errorf("BinaryPath error = %v, want ErrNotInstalled", err)
	}
}

func TestYaccPath(t *testing.T) {
	clearOverrides(t)
	root := testutil.WritePayloadTree(t, t.TempDir(), "3.8.2")
	t.Setenv(EnvRoot, root)

	got, err := Locator{}.YaccPath()
	if err != nil {
		t.Fatalf("YaccPath: %v", err)
	}
	if want := filepath.Join(root, "bin", "yacc"); got != want {
		t.Errorf("YaccPath = %q, want %q", got, want)
	}
}

func TestEnsureExecutableRepairsMode(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "bison", "#!/bin/sh\n")
	if err := EnsureExecutable(path); err != nil {
		t.Fatalf("EnsureExecutable: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("exec bit not restored: %v", info.Mode())
	}
}

func TestProbeVersion(t *testing.T) {
	root := testutil.WritePayloadTree(t, t.TempDir(), "3.8.2")
	banner, err := ProbeVersion(context.Background(), filepath.Join(root, "bin", "bison"))
	if err != nil {
		t.Fatalf("ProbeVersion: %v", err)
	}
	if banner != "bison (GNU Bison) 3.8.2" {
		t.Errorf("banner = %q", banner)
	}
	if !ReportsVersion(banner, "3.8.2") {
		t.Errorf("ReportsVersion(%q, 3.8.2) = false", banner)
	}
	if ReportsVersion(banner, "3.8") {
		t.Errorf("ReportsVersion matched a version prefix")
	}
}
