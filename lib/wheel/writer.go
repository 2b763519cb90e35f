// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package wheel

import (
	"archive/zip"
	"crypto/sha256"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/trim21/bison-py/lib/version"
)

// packageDir is the importable Python package inside the wheel.
const packageDir = "bison_bin"

//go:embed pydist/*.py
var pydistFiles embed.FS

// Options controls one wheel build.
type Options struct {
	// PayloadDir is the staged bison install tree. Required.
	PayloadDir string

	// OutputDir receives the finished wheel. Required.
	OutputDir string

	// Metadata describes the distribution.
	Metadata Metadata

	// PlatformTag overrides the host-derived platform tag. Set it
	// when packing a payload staged for another platform.
	PlatformTag string

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Build assembles the wheel and returns its path.
func Build(options Options) (string, error) {
	if options.PayloadDir == "" {
		return "", errors.New("wheel: payload directory is required")
	}
	if options.OutputDir == "" {
		return "", errors.New("wheel: output directory is required")
	}
	if err := options.Metadata.normalize(); err != nil {
		return "", err
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	platformTag := options.PlatformTag
	if platformTag == "" {
		var err error
		platformTag, err = HostPlatformTag()
		if err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	wheelPath := filepath.Join(options.OutputDir, options.Metadata.Filename(platformTag))

	file, err := os.Create(wheelPath)
	if err != nil {
		return "", fmt.Errorf("creating wheel: %w", err)
	}

	builder := &wheelBuilder{
		zip:  zip.NewWriter(file),
		meta: &options.Metadata,
	}
	err = builder.write(options.PayloadDir, platformTag)
	if closeErr := builder.zip.Close(); err == nil {
		err = closeErr
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(wheelPath)
		return "", err
	}

	logger.Info("wheel written",
		"path", wheelPath,
		"tag", PythonTag+"-"+ABITag+"-"+platformTag,
		"files", len(builder.records))
	return wheelPath, nil
}

// record is one RECORD row: path, digest, size.
type record struct {
	path   string
	digest string
	size   int64
}

type wheelBuilder struct {
	zip     *zip.Writer
	meta    *Metadata
	records []record
}

// write adds all wheel members. RECORD must be last since it lists
// every other member.
func (b *wheelBuilder) write(payloadDir, platformTag string) error {
	if err := b.addPythonSources(); err != nil {
		return err
	}
	if err := b.addString(packageDir+"/_version.py", b.meta.versionFile(), 0o644); err != nil {
		return err
	}
	if err := b.addPayload(payloadDir); err != nil {
		return err
	}

	distInfo := b.meta.distInfoDir()
	pairs := []struct{ name, content string }{
		{distInfo + "/METADATA", b.meta.metadataFile()},
		{distInfo + "/WHEEL", b.meta.wheelFile(platformTag, version.Short())},
		{distInfo + "/entry_points.txt", entryPointsFile()},
	}
	for _, pair := range pairs {
		if err := b.addString(pair.name, pair.content, 0o644); err != nil {
			return err
		}
	}

	return b.addRecord(distInfo + "/RECORD")
}

// addPythonSources adds the embedded shim modules under the package
// directory.
func (b *wheelBuilder) addPythonSources() error {
	entries, err := fs.ReadDir(pydistFiles, "pydist")
	if err != nil {
		return fmt.Errorf("reading embedded python sources: %w", err)
	}
	// Embedded FS order is already sorted; keep it explicit anyway so
	// wheel contents are stable.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		content, err := fs.ReadFile(pydistFiles, "pydist/"+entry.Name())
		if err != nil {
			return fmt.Errorf("reading embedded %s: %w", entry.Name(), err)
		}
		if err := b.addString(packageDir+"/"+entry.Name(), string(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// addPayload copies the staged install tree under bison_bin/_bison/.
// Symlinks are materialized as regular files: zip symlink support is
// inconsistent across Python installers, and the payload's links are
// small (yacc wrapper, liby aliases).
func (b *wheelBuilder) addPayload(payloadDir string) error {
	var paths []string
	err := filepath.Walk(payloadDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.Mode().IsRegular() || info.Mode()&os.ModeSymlink != 0 {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking payload: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		relative, err := filepath.Rel(payloadDir, path)
		if err != nil {
			return err
		}
		name := packageDir + "/_bison/" + filepath.ToSlash(relative)

		// Stat (not Lstat): follow symlinks to the real content.
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading payload member %s: %w", relative, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		source, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening payload member %s: %w", relative, err)
		}
		err = b.addStream(name, source, info.Mode().Perm())
		source.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// addString adds a member from an in-memory string.
func (b *wheelBuilder) addString(name, content string, mode os.FileMode) error {
	return b.addStream(name, strings.NewReader(content), mode)
}

// addStream adds a member from a reader, hashing it for RECORD.
func (b *wheelBuilder) addStream(name string, source io.Reader, mode os.FileMode) error {
	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	header.SetMode(mode)

	writer, err := b.zip.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding %s to wheel: %w", name, err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(writer, hasher), source)
	if err != nil {
		return fmt.Errorf("writing %s to wheel: %w", name, err)
	}

	b.records = append(b.records, record{
		path:   name,
		digest: "sha256=" + base64.RawURLEncoding.EncodeToString(hasher.Sum(nil)),
		size:   size,
	})
	return nil
}

// addRecord writes the RECORD manifest. Its own row has empty digest
// and size fields, as the wheel spec requires.
func (b *wheelBuilder) addRecord(name string) error {
	var builder strings.Builder
	for _, row := range b.records {
		fmt.Fprintf(&builder, "%s,%s,%d\n", row.path, row.digest, row.size)
	}
	fmt.Fprintf(&builder, "%s,,\n", name)

	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	header.SetMode(0o644)
	writer, err := b.zip.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("adding RECORD to wheel: %w", err)
	}
	if _, err := io.WriteString(writer, builder.String()); err != nil {
		return fmt.Errorf("writing RECORD: %w", err)
	}
	return nil
}
