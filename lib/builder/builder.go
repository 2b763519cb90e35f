// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/trim21/bison-py/lib/archive"
	"github.com/trim21/bison-py/lib/fetch"
	"github.com/trim21/bison-py/lib/gnu"
	"github.com/trim21/bison-py/lib/toolchain"
)

// DefaultParallel is the make -j level used when none is configured.
const DefaultParallel = 4

// Options controls one run of the build pipeline. Versions must be
// resolved by the caller (explicitly configured or discovered via
// lib/gnu) before Build is invoked.
type Options struct {
	// BisonVersion is the bison release to build. Required.
	BisonVersion string

	// M4Version is the m4 release to build first. Required.
	M4Version string

	// Parallel is the make -j level. Zero means DefaultParallel.
	Parallel int

	// Strip runs strip over the staged binaries after install.
	// Failures are logged and ignored.
	Strip bool

	// StageRoot is the scratch area for extraction and the m4
	// install. Cleared at the start of every build. Required.
	StageRoot string

	// Prefix is the install prefix the finished payload lands in.
	// Required.
	Prefix string

	// TarballFormat selects the upstream compression format ("xz" or
	// "gz"). Empty means "xz", the primary GNU distribution format.
	TarballFormat string
}

func (o *Options) validate() error {
	var errs []error
	if o.BisonVersion == "" {
		errs = append(errs, errors.New("bison version is required"))
	}
	if o.M4Version == "" {
		errs = append(errs, errors.New("m4 version is required"))
	}
	if o.StageRoot == "" {
		errs = append(errs, errors.New("stage root is required"))
	}
	if o.Prefix == "" {
		errs = append(errs, errors.New("install prefix is required"))
	}
	return errors.Join(errs...)
}

// Builder runs the fetch/extract/configure/make/install pipeline for
// m4 and bison.
type Builder struct {
	runner toolchain.Runner
	cache  *fetch.Cache
	mirror *gnu.Client
	logger *slog.Logger
}

// New creates a Builder. All collaborators are required except the
// logger, which defaults to slog.Default().
func New(runner toolchain.Runner, cache *fetch.Cache, mirror *gnu.Client, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{runner: runner, cache: cache, mirror: mirror, logger: logger}
}

// project describes one configure/make/make install unit.
type project struct {
	name          string
	version       string
	prefix        string
	configureArgs []string
	env           []string
}

// Build runs the full pipeline: m4 into a private prefix inside the
// stage, then bison into Options.Prefix with the staged m4 exported
// via PATH and M4. The payload is verified before returning.
func (b *Builder) Build(ctx context.Context, options Options) error {
	if err := options.validate(); err != nil {
		return err
	}
	parallel := options.Parallel
	if parallel <= 0 {
		parallel = DefaultParallel
	}
	format := options.TarballFormat
	if format == "" {
		format = "xz"
	}

	if err := os.RemoveAll(options.StageRoot); err != nil {
		return fmt.Errorf("clearing stage root: %w", err)
	}
	workDir := filepath.Join(options.StageRoot, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating stage root: %w", err)
	}

	m4Prefix := filepath.Join(options.StageRoot, "m4")
	m4Bin := filepath.Join(m4Prefix, "bin")

	b.logger.Info("building m4", "version", options.M4Version)
	err := b.buildProject(ctx, workDir, parallel, format, project{
		name:    "m4",
		version: options.M4Version,
		prefix:  m4Prefix,
		configureArgs: []string{
			"--disable-dependency-tracking",
			"--enable-static",
			"--enable-shared",
		},
	})
	if err != nil {
		return err
	}

	b.logger.Info("building bison", "version", options.BisonVersion)
	err = b.buildProject(ctx, workDir, parallel, format, project{
		name:    "bison",
		version: options.BisonVersion,
		prefix:  options.Prefix,
		configureArgs: []string{
			"--disable-nls",
			"--enable-relocatable",
		},
		env: []string{
			// The staged m4 must win over any system m4: bison's
			// configure probes $M4 first, and its test harness
			// shells out via PATH.
			"PATH=" + m4Bin + string(os.PathListSeparator) + os.Getenv("PATH"),
			"M4=" + filepath.Join(m4Bin, "m4"),
		},
	})
	if err != nil {
		return err
	}

	if options.Strip {
		b.stripBinaries(ctx, filepath.Join(options.Prefix, "bin"))
	}

	return VerifyPayload(options.Prefix)
}

// buildProject fetches, extracts, and runs the standard
// configure/make/make install sequence for one project.
func (b *Builder) buildProject(ctx context.Context, workDir string, parallel int, format string, p project) error {
	tarballName := gnu.TarballName(p.name, p.version, format)
	tarballPath, err := b.cache.Fetch(ctx, b.mirror.DownloadURL(p.name, p.version, format), tarballName)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", tarballName, err)
	}

	sourceRoot, err := archive.Extract(tarballPath, filepath.Join(workDir, p.name))
	if err != nil {
		return err
	}

	configure := filepath.Join(sourceRoot, "configure")
	if _, err := os.Stat(configure); err != nil {
		return fmt.Errorf("%s %s has no configure script: %w", p.name, p.version, err)
	}

	if err := os.MkdirAll(p.prefix, 0o755); err != nil {
		return fmt.Errorf("creating prefix %s: %w", p.prefix, err)
	}

	steps := []toolchain.Command{
		{
			Dir:  sourceRoot,
			Env:  p.env,
			Name: "sh",
			Args: append([]string{"./configure", "--prefix=" + p.prefix}, p.configureArgs...),
		},
		{
			Dir:  sourceRoot,
			Env:  p.env,
			Name: "make",
			Args: []string{"-j" + strconv.Itoa(parallel)},
		},
		{
			Dir:  sourceRoot,
			Env:  p.env,
			Name: "make",
			Args: []string{"install"},
		},
	}
	for _, step := range steps {
		if err := b.runner.Run(ctx, step); err != nil {
			return fmt.Errorf("building %s %s: %w", p.name, p.version, err)
		}
	}
	return nil
}

// stripBinaries runs strip over every regular file in binDir. This is
// a best-effort size optimization: a missing strip tool or a failing
// invocation leaves the unstripped binary in place.
func (b *Builder) stripBinaries(ctx context.Context, binDir string) {
	if _, err := toolchain.FindBinary("strip"); err != nil {
		b.logger.Warn("strip not available, keeping unstripped binaries", "error", err)
		return
	}

	entries, err := os.ReadDir(binDir)
	if err != nil {
		b.logger.Warn("cannot list staged binaries for strip", "dir", binDir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		target := filepath.Join(binDir, entry.Name())
		err := b.runner.Run(ctx, toolchain.Command{
			Dir:  binDir,
			Name: "strip",
			Args: []string{target},
		})
		if err != nil {
			b.logger.Warn("strip failed, keeping unstripped binary",
				"binary", entry.Name(), "error", err)
		}
	}
}

// VerifyPayload confirms that a staged install prefix actually
// contains an executable bison binary.
func VerifyPayload(prefix string) error {
	binary := filepath.Join(prefix, "bin", "bison")
	info, err := os.Stat(binary)
	if err != nil {
		return fmt.Errorf("staged payload is missing bin/bison: %w", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("staged bison at %s is not executable", binary)
	}
	return nil
}
