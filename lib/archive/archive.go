// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive handles the tar-based formats bison-py touches:
// upstream GNU source tarballs (.tar.gz, .tar.bz2, .tar.xz) on the
// read side and plain tar trees for payload snapshots on the write
// side. Extraction rejects member paths that would escape the target
// directory.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// ErrUnknownFormat is returned when an archive's filename extension is
// not a supported tar variant.
var ErrUnknownFormat = errors.New("unknown archive format")

// Extract unpacks the tarball at archivePath into targetDir. The
// target is removed and recreated first, so extraction is idempotent.
//
// GNU source tarballs contain a single top-level directory
// (bison-3.8.2/); Extract returns its absolute path. If the archive
// has multiple top-level entries, targetDir itself is returned.
func Extract(archivePath, targetDir string) (string, error) {
	if err := os.RemoveAll(targetDir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", targetDir, err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", targetDir, err)
	}

	file, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	reader, err := decompressor(archivePath, file)
	if err != nil {
		return "", err
	}

	topLevel, err := Untar(reader, targetDir)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", filepath.Base(archivePath), err)
	}

	if len(topLevel) == 1 {
		return filepath.Join(targetDir, topLevel[0]), nil
	}
	return targetDir, nil
}

// decompressor wraps raw in the decompression reader matching the
// archive filename.
func decompressor(archivePath string, raw io.Reader) (io.Reader, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		reader, err := gzip.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return reader, nil
	case strings.HasSuffix(name, ".tar.xz"):
		reader, err := xz.NewReader(raw)
		if err != nil {
			return nil, fmt.Errorf("opening xz stream: %w", err)
		}
		return reader, nil
	case strings.HasSuffix(name, ".tar.bz2"):
		return bzip2.NewReader(raw), nil
	case strings.HasSuffix(name, ".tar"):
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
}

// Untar unpacks an uncompressed tar stream into targetDir and returns
// the distinct top-level entry names in archive order.
func Untar(reader io.Reader, targetDir string) ([]string, error) {
	tarReader := tar.NewReader(reader)

	// Resolve the root once so destination checks compare fully
	// resolved paths (targetDir itself may sit behind a symlink, e.g.
	// /tmp on macOS).
	resolvedRoot, err := filepath.EvalSymlinks(targetDir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", targetDir, err)
	}

	seenTop := make(map[string]struct{})
	var topLevel []string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return topLevel, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar stream: %w", err)
		}
		if header.Name == "" {
			continue
		}

		cleaned, err := safeMemberPath(header.Name)
		if err != nil {
			return nil, err
		}

		top := cleaned
		if index := strings.IndexByte(cleaned, '/'); index >= 0 {
			top = cleaned[:index]
		}
		if _, ok := seenTop[top]; !ok {
			seenTop[top] = struct{}{}
			topLevel = append(topLevel, top)
		}

		destination := filepath.Join(targetDir, filepath.FromSlash(cleaned))
		if err := checkNoSymlinkEscape(resolvedRoot, destination, cleaned); err != nil {
			return nil, err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destination, os.FileMode(header.Mode)|0o700); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", cleaned, err)
			}

		case tar.TypeReg:
			if err := writeRegular(destination, tarReader, os.FileMode(header.Mode)); err != nil {
				return nil, fmt.Errorf("writing %s: %w", cleaned, err)
			}

		case tar.TypeSymlink:
			// Links inside source trees are relative (configure
			// helper scripts). Absolute targets would dangle after
			// relocation anyway; reject them outright.
			if filepath.IsAbs(header.Linkname) {
				return nil, fmt.Errorf("symlink %s has absolute target %s", cleaned, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
				return nil, fmt.Errorf("creating parent of %s: %w", cleaned, err)
			}
			if err := os.Symlink(header.Linkname, destination); err != nil {
				return nil, fmt.Errorf("creating symlink %s: %w", cleaned, err)
			}

		case tar.TypeLink:
			linkTarget, err := safeMemberPath(header.Linkname)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
				return nil, fmt.Errorf("creating parent of %s: %w", cleaned, err)
			}
			if err := os.Link(filepath.Join(targetDir, filepath.FromSlash(linkTarget)), destination); err != nil {
				return nil, fmt.Errorf("creating hard link %s: %w", cleaned, err)
			}

		default:
			// Character devices, FIFOs, and the like do not occur in
			// source tarballs; skip silently rather than failing the
			// whole extraction.
		}
	}
}

// writeRegular creates a regular file from tar content, creating
// parent directories as needed.
func writeRegular(destination string, content io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// checkNoSymlinkEscape rejects a member whose destination would be
// written through an already-extracted symlink pointing outside the
// extraction root. safeMemberPath only inspects member names; a
// relative symlink like "sub -> ../../elsewhere" followed by a member
// "sub/evil" passes the name check but lands outside the root. The
// nearest existing ancestor of the destination is fully resolved and
// must stay under the resolved root; ancestors that do not exist yet
// are created by the extraction itself and cannot redirect.
func checkNoSymlinkEscape(resolvedRoot, destination, member string) error {
	ancestor := filepath.Dir(destination)
	for {
		resolved, err := filepath.EvalSymlinks(ancestor)
		if err == nil {
			if resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(os.PathSeparator)) {
				return fmt.Errorf("archive member %s escapes extraction root through symlink %s", member, ancestor)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("resolving parent of %s: %w", member, err)
		}
		ancestor = filepath.Dir(ancestor)
	}
}

// safeMemberPath validates and normalizes a tar member path. Absolute
// paths and paths escaping the extraction root via ".." are rejected.
func safeMemberPath(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archive member has absolute path: %s", name)
	}
	cleaned := filepath.ToSlash(filepath.Clean(name))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("archive member escapes extraction root: %s", name)
	}
	return cleaned, nil
}

// WriteTar writes the tree rooted at sourceDir as an uncompressed tar
// stream. Member paths are relative to sourceDir using forward
// slashes. Regular files, directories, and symlinks are preserved with
// their permission bits; other entry types are skipped.
func WriteTar(sourceDir string, writer io.Writer) error {
	tarWriter := tar.NewWriter(writer)

	err := filepath.Walk(sourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		relative, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}
		name := filepath.ToSlash(relative)

		switch {
		case info.Mode().IsDir():
			return tarWriter.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
			})

		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", name, err)
			}
			return tarWriter.WriteHeader(&tar.Header{
				Typeflag: tar.TypeSymlink,
				Name:     name,
				Linkname: target,
				Mode:     int64(info.Mode().Perm()),
				ModTime:  info.ModTime(),
			})

		case info.Mode().IsRegular():
			if err := tarWriter.WriteHeader(&tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Mode:     int64(info.Mode().Perm()),
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			}); err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tarWriter, file)
			file.Close()
			return err

		default:
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("taring %s: %w", sourceDir, err)
	}
	return tarWriter.Close()
}
