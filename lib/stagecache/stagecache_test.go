// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package stagecache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/trim21/bison-py/lib/testutil"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			source := t.TempDir()
			testutil.WritePayloadTree(t, source, "3.8.2")

			snapshot := filepath.Join(t.TempDir(), "payload"+compression.Extension())
			if err := Save(source, snapshot, compression); err != nil {
				t.Fatalf("Save: %v", err)
			}

			restored := filepath.Join(t.TempDir(), "restored")
			if err := Restore(snapshot, restored); err != nil {
				t.Fatalf("Restore: %v", err)
			}

			binary := filepath.Join(restored, "bin", "bison")
			info, err := os.Stat(binary)
			if err != nil {
				t.Fatalf("restored bison missing: %v", err)
			}
			if info.Mode().Perm()&0o111 == 0 {
				t.Errorf("restored bison lost exec bit")
			}

			want, err := os.ReadFile(filepath.Join(source, "share", "bison", "skeletons", "yacc.c"))
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			got, err := os.ReadFile(filepath.Join(restored, "share", "bison", "skeletons", "yacc.c"))
			if err != nil {
				t.Fatalf("restored data file missing: %v", err)
			}
			if string(got) != string(want) {
				t.Errorf("restored data differs")
			}
		})
	}
}

func TestRestoreClearsTarget(t *testing.T) {
	source := t.TempDir()
	testutil.WritePayloadTree(t, source, "3.8.2")
	snapshot := filepath.Join(t.TempDir(), "payload.tar.zst")
	if err := Save(source, snapshot, CompressionZstd); err != nil {
		t.Fatalf("Save: %v", err)
	}

	target := t.TempDir()
	stray := testutil.WriteFile(t, target, "bin/stale-binary", "old")
	if err := Restore(snapshot, target); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Errorf("stale file survived restore")
	}
}

func TestRestoreRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.zip")
	if err := os.WriteFile(path, []byte("zip"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Restore(path, t.TempDir()); err == nil {
		t.Error("Restore accepted a non-snapshot extension")
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{
		"none": CompressionNone,
		"lz4":  CompressionLZ4,
		"zstd": CompressionZstd,
	} {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("ParseCompression accepted an unknown codec")
	}
}
