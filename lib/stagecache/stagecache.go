// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package stagecache persists a staged payload tree as a single
// compressed snapshot file, so `pack` can be re-run (or run on a
// different checkout) without repeating the compile. A snapshot is a
// tar stream wrapped in a selectable compression codec; the codec is
// carried in the filename extension.
package stagecache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/trim21/bison-py/lib/archive"
)

// Compression identifies the snapshot codec.
type Compression uint8

const (
	// CompressionNone stores the raw tar stream. Useful when the
	// snapshot lives on an already-compressed filesystem.
	CompressionNone Compression = 0

	// CompressionLZ4 favors speed: the payload is mostly binaries
	// that still shrink ~2x, and decode is nearly free.
	CompressionLZ4 Compression = 1

	// CompressionZstd is the default: better ratio on the skeleton
	// and locale data that dominate the payload's file count.
	CompressionZstd Compression = 2
)

// String returns the codec name used in flags and filenames.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Extension returns the snapshot filename extension for the codec.
func (c Compression) Extension() string {
	switch c {
	case CompressionLZ4:
		return ".tar.lz4"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// ParseCompression parses a codec from its flag name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown snapshot compression %q (want none, lz4, or zstd)", name)
	}
}

// detectCompression maps a snapshot filename back to its codec.
func detectCompression(path string) (Compression, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".tar.zst"):
		return CompressionZstd, nil
	case strings.HasSuffix(name, ".tar.lz4"):
		return CompressionLZ4, nil
	case strings.HasSuffix(name, ".tar"):
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("%s is not a snapshot file (want .tar, .tar.lz4, or .tar.zst)", name)
	}
}

// Save writes the tree rooted at sourceDir to a snapshot at path.
// The path should carry the codec's Extension; Save does not rename.
func Save(sourceDir, path string, compression Compression) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}

	var sink io.WriteCloser
	switch compression {
	case CompressionNone:
		sink = file
	case CompressionLZ4:
		sink = lz4.NewWriter(file)
	case CompressionZstd:
		encoder, err := zstd.NewWriter(file)
		if err != nil {
			file.Close()
			return fmt.Errorf("initializing zstd encoder: %w", err)
		}
		sink = encoder
	default:
		file.Close()
		return fmt.Errorf("unsupported snapshot compression: %d", compression)
	}

	tarErr := archive.WriteTar(sourceDir, sink)
	var closeErr error
	if sink != file {
		closeErr = sink.Close()
	}
	if fileErr := file.Close(); closeErr == nil {
		closeErr = fileErr
	}

	if tarErr != nil {
		os.Remove(path)
		return fmt.Errorf("writing snapshot: %w", tarErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return fmt.Errorf("finalizing snapshot: %w", closeErr)
	}
	return nil
}

// Restore unpacks the snapshot at path into targetDir. The target is
// cleared first, so a restore over a half-staged payload is safe.
func Restore(path, targetDir string) error {
	compression, err := detectCompression(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer file.Close()

	var source io.Reader
	switch compression {
	case CompressionNone:
		source = file
	case CompressionLZ4:
		source = lz4.NewReader(file)
	case CompressionZstd:
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("initializing zstd decoder: %w", err)
		}
		defer decoder.Close()
		source = decoder
	}

	if err := os.RemoveAll(targetDir); err != nil {
		return fmt.Errorf("clearing restore target: %w", err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("creating restore target: %w", err)
	}
	if _, err := archive.Untar(source, targetDir); err != nil {
		return fmt.Errorf("restoring snapshot %s: %w", filepath.Base(path), err)
	}
	return nil
}
