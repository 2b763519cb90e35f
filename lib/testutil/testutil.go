// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test fixtures for bison-py
// packages: on-disk file trees, fake staged payloads, and in-memory
// tarballs. All helpers call t.Fatalf on failure rather than returning
// errors, since fixture failures are not recoverable.
package testutil

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// WriteFile creates a file (and its parent directories) under root
// with mode 0644 and returns its path.
func WriteFile(t *testing.T, root, name, content string) string {
	t.Helper()
	return writeFileMode(t, root, name, content, 0o644)
}

// WriteExecutable creates an executable file (mode 0755) under root
// and returns its path.
func WriteExecutable(t *testing.T, root, name, content string) string {
	t.Helper()
	return writeFileMode(t, root, name, content, 0o755)
}

func writeFileMode(t *testing.T, root, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// WritePayloadTree populates root with the shape of a staged bison
// install: bin/bison and bin/yacc as shell scripts that report the
// given version, plus a data file under share/. Returns root.
//
// The scripts respond to --version with the same leading line real
// bison prints, so payload probing can be tested without compiling
// anything.
func WritePayloadTree(t *testing.T, root, version string) string {
	t.Helper()
	script := "#!/bin/sh\necho \"bison (GNU Bison) " + version + "\"\n"
	WriteExecutable(t, root, "bin/bison", script)
	WriteExecutable(t, root, "bin/yacc", "#!/bin/sh\nexec \"$(dirname \"$0\")/bison\" -y \"$@\"\n")
	WriteFile(t, root, "share/bison/skeletons/yacc.c", "/* skeleton */\n")
	return root
}

// TarEntry describes one member of an in-memory test tarball.
type TarEntry struct {
	// Name is the member path (forward slashes). A trailing slash
	// marks a directory.
	Name string

	// Body is the file content. Ignored for directories and symlinks.
	Body string

	// Mode is the permission bits. Zero defaults to 0644 for files
	// and 0755 for directories.
	Mode int64

	// Link marks the entry as a symlink with this target.
	Link string
}

// Tar builds an uncompressed tar stream from entries.
func Tar(t *testing.T, entries []TarEntry) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := tar.NewWriter(&buffer)
	for _, entry := range entries {
		header := &tar.Header{Name: entry.Name, Mode: entry.Mode}
		switch {
		case entry.Link != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = entry.Link
			if header.Mode == 0 {
				header.Mode = 0o777
			}
		case len(entry.Name) > 0 && entry.Name[len(entry.Name)-1] == '/':
			header.Typeflag = tar.TypeDir
			if header.Mode == 0 {
				header.Mode = 0o755
			}
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(entry.Body))
			if header.Mode == 0 {
				header.Mode = 0o644
			}
		}
		if err := writer.WriteHeader(header); err != nil {
			t.Fatalf("tar WriteHeader(%s): %v", entry.Name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := writer.Write([]byte(entry.Body)); err != nil {
				t.Fatalf("tar Write(%s): %v", entry.Name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	return buffer.Bytes()
}

// TarGz builds a gzip-compressed tarball from entries.
func TarGz(t *testing.T, entries []TarEntry) []byte {
	t.Helper()
	var buffer bytes.Buffer
	gzWriter := gzip.NewWriter(&buffer)
	if _, err := gzWriter.Write(Tar(t, entries)); err != nil {
		t.Fatalf("gzip Write: %v", err)
	}
	if err := gzWriter.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buffer.Bytes()
}

// SourceTarball builds a gzip tarball shaped like a GNU source
// release: a single top-level directory containing a configure script.
func SourceTarball(t *testing.T, project, version string) []byte {
	t.Helper()
	root := project + "-" + version + "/"
	return TarGz(t, []TarEntry{
		{Name: root},
		{Name: root + "configure", Body: "#!/bin/sh\nexit 0\n", Mode: 0o755},
		{Name: root + "Makefile.in", Body: "all:\n"},
	})
}
