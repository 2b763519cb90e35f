// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/builder"
	"github.com/trim21/bison-py/lib/stagecache"
	"github.com/trim21/bison-py/lib/toolchain"
)

// buildCommand returns the "build" command, which compiles m4 and
// bison into the payload tree.
func buildCommand() *cli.Command {
	var configPath string
	var parallel int
	var strip bool
	var noStrip bool
	var bisonVersion string
	var m4Version string
	var saveSnapshot string
	var fromSnapshot string
	var compression string

	return &cli.Command{
		Name:    "build",
		Summary: "Compile m4 and bison into the payload tree",
		Description: `Run the full build pipeline: fetch the source tarballs, extract
them, configure and compile m4 into a private prefix, then configure
and compile bison against it into the payload tree. The payload is
relocatable and ready for packing.

A finished payload can be saved as a compressed snapshot and restored
later, skipping the compile entirely. This is how CI reuses one build
across several packaging jobs.`,
		Usage: "bison-py build [flags]",
		Examples: []cli.Example{
			{
				Description: "Build with configured (or discovered) versions",
				Command:     "bison-py build",
			},
			{
				Description: "Pin versions and raise parallelism",
				Command:     "bison-py build --bison-version 3.8.2 --m4-version 1.4.19 --parallel 8",
			},
			{
				Description: "Save the finished payload as a zstd snapshot",
				Command:     "bison-py build --save-snapshot payload.tar.zst",
			},
			{
				Description: "Restore a snapshot instead of compiling",
				Command:     "bison-py build --from-snapshot payload.tar.zst",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			flagSet.IntVar(&parallel, "parallel", 0, "make -j level (0 uses the configured value)")
			flagSet.BoolVar(&strip, "strip", false, "strip staged binaries after install")
			flagSet.BoolVar(&noStrip, "no-strip", false, "skip stripping even if configured")
			flagSet.StringVar(&bisonVersion, "bison-version", "", "bison release to build")
			flagSet.StringVar(&m4Version, "m4-version", "", "m4 release to build")
			flagSet.StringVar(&saveSnapshot, "save-snapshot", "", "write the finished payload to this snapshot file")
			flagSet.StringVar(&fromSnapshot, "from-snapshot", "", "restore the payload from this snapshot instead of building")
			flagSet.StringVar(&compression, "compression", "zstd", "snapshot compression (none, lz4, zstd)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if fromSnapshot != "" && saveSnapshot != "" {
				return fmt.Errorf("--from-snapshot and --save-snapshot are mutually exclusive")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.EnsurePaths(); err != nil {
				return err
			}
			logger := cli.NewLogger()

			if fromSnapshot != "" {
				if err := stagecache.Restore(fromSnapshot, cfg.Paths.Payload); err != nil {
					return fmt.Errorf("restoring snapshot: %w", err)
				}
				if err := builder.VerifyPayload(cfg.Paths.Payload); err != nil {
					return fmt.Errorf("restored payload is unusable: %w", err)
				}
				logger.Info("payload restored", "snapshot", fromSnapshot, "payload", cfg.Paths.Payload)
				return nil
			}

			checks := toolchain.Prerequisites()
			if missing := toolchain.MissingRequired(checks); len(missing) > 0 {
				return fmt.Errorf("missing build tools: %s (run 'bison-py doctor' for details)",
					strings.Join(missing, ", "))
			}

			mirror := newMirror(cfg, logger)
			cache, err := newFetchCache(cfg, logger)
			if err != nil {
				return err
			}
			runner := &toolchain.ExecRunner{
				Stdout: os.Stdout,
				Stderr: os.Stderr,
				Logger: logger,
			}

			ctx, cancel := signalContext()
			defer cancel()

			if bisonVersion != "" {
				cfg.Build.BisonVersion = bisonVersion
			}
			if m4Version != "" {
				cfg.Build.M4Version = m4Version
			}
			resolvedBison, resolvedM4 := resolveVersions(ctx, cfg, mirror)

			if parallel == 0 {
				parallel = cfg.Build.Parallel
			}
			doStrip := cfg.Build.Strip || strip
			if noStrip {
				doStrip = false
			}

			err = builder.New(runner, cache, mirror, logger).Build(ctx, builder.Options{
				BisonVersion:  resolvedBison,
				M4Version:     resolvedM4,
				Parallel:      parallel,
				Strip:         doStrip,
				StageRoot:     cfg.Paths.Stage,
				Prefix:        cfg.Paths.Payload,
				TarballFormat: cfg.Build.TarballFormat,
			})
			if err != nil {
				return err
			}
			logger.Info("payload built",
				"bison", resolvedBison, "m4", resolvedM4, "payload", cfg.Paths.Payload)

			if saveSnapshot != "" {
				codec, err := stagecache.ParseCompression(compression)
				if err != nil {
					return err
				}
				if err := stagecache.Save(cfg.Paths.Payload, saveSnapshot, codec); err != nil {
					return fmt.Errorf("saving snapshot: %w", err)
				}
				logger.Info("snapshot saved", "snapshot", saveSnapshot)
			}
			return nil
		},
	}
}
