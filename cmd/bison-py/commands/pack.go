// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/trim21/bison-py/cmd/bison-py/cli"
	"github.com/trim21/bison-py/lib/builder"
	"github.com/trim21/bison-py/lib/gnu"
	"github.com/trim21/bison-py/lib/payload"
	"github.com/trim21/bison-py/lib/stagecache"
	"github.com/trim21/bison-py/lib/wheel"
)

// packCommand returns the "pack" command, which assembles the payload
// tree into a platform-tagged wheel.
func packCommand() *cli.Command {
	var configPath string
	var payloadDir string
	var outputDir string
	var platformTag string
	var packageVersion string
	var bisonVersion string
	var fromSnapshot string

	return &cli.Command{
		Name:    "pack",
		Summary: "Assemble the payload into a platform-tagged wheel",
		Description: `Pack the built payload tree into a Python wheel. The wheel carries
the complete bison install under the package data directory, Python
wrapper modules that locate and exec the bundled binary, and
console-script entry points for bison and yacc.

The wheel is tagged py3-none-<platform> and marked non-pure so
installers place it under platlib.`,
		Usage: "bison-py pack [flags]",
		Examples: []cli.Example{
			{
				Description: "Pack the configured payload for the host platform",
				Command:     "bison-py pack",
			},
			{
				Description: "Cross-tag a wheel for manylinux aarch64",
				Command:     "bison-py pack --platform-tag manylinux2014_aarch64",
			},
			{
				Description: "Pack directly from a build snapshot",
				Command:     "bison-py pack --from-snapshot payload.tar.zst",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			flagSet.StringVar(&payloadDir, "payload", "", "payload tree to pack (defaults to the configured path)")
			flagSet.StringVar(&outputDir, "output", "", "directory for the finished wheel")
			flagSet.StringVar(&platformTag, "platform-tag", "", "wheel platform tag (defaults to the host)")
			flagSet.StringVar(&packageVersion, "package-version", "", "wheel version (defaults to the bison version)")
			flagSet.StringVar(&bisonVersion, "bison-version", "", "bison version carried in the payload")
			flagSet.StringVar(&fromSnapshot, "from-snapshot", "", "restore the payload from this snapshot before packing")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := cli.NewLogger()

			if payloadDir == "" {
				payloadDir = cfg.Paths.Payload
			}
			if outputDir == "" {
				outputDir = cfg.Paths.Dist
			}
			if platformTag == "" {
				platformTag = cfg.Wheel.PlatformTag
			}
			if packageVersion == "" {
				packageVersion = cfg.Wheel.Version
			}

			ctx, cancel := signalContext()
			defer cancel()

			if fromSnapshot != "" {
				if err := cfg.EnsurePaths(); err != nil {
					return err
				}
				if err := stagecache.Restore(fromSnapshot, payloadDir); err != nil {
					return fmt.Errorf("restoring snapshot: %w", err)
				}
			}
			if err := builder.VerifyPayload(payloadDir); err != nil {
				return fmt.Errorf("payload is not packable: %w", err)
			}

			if platformTag == "" {
				platformTag, err = wheel.HostPlatformTag()
				if err != nil {
					return err
				}
			}
			if bisonVersion == "" {
				bisonVersion = resolvePayloadVersion(ctx, cfg.Build.BisonVersion, payloadDir)
			}

			wheelPath, err := wheel.Build(wheel.Options{
				PayloadDir: payloadDir,
				OutputDir:  outputDir,
				Metadata: wheel.Metadata{
					Name:         cfg.Wheel.Name,
					Version:      packageVersion,
					BisonVersion: bisonVersion,
				},
				PlatformTag: platformTag,
				Logger:      logger,
			})
			if err != nil {
				return err
			}
			fmt.Println(wheelPath)
			return nil
		},
	}
}

// resolvePayloadVersion determines the bison version inside a payload
// tree: the configured pin if set, otherwise the version banner of the
// staged binary, otherwise the pinned default.
func resolvePayloadVersion(ctx context.Context, configured, payloadDir string) string {
	if configured != "" {
		return configured
	}
	banner, err := payload.ProbeVersion(ctx, filepath.Join(payloadDir, "bin", "bison"))
	if err == nil {
		fields := strings.Fields(banner)
		if len(fields) > 0 {
			return fields[len(fields)-1]
		}
	}
	return gnu.DefaultBisonVersion
}
