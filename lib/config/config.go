// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for bison-py commands.
//
// Configuration comes from a single YAML file specified by the
// BISONPY_CONFIG environment variable or a --config flag. There is no
// automatic file discovery. All paths support ${VAR} and
// ${VAR:-default} expansion.
//
// Unlike the file, which is optional (defaults cover the common case),
// the build environment variables are a stable public contract carried
// over from the original packaging scripts: BISON_VERSION, M4_VERSION,
// BISON_BIN_VERSION, BISON_BUILD_PARALLEL, and BISON_BIN_STRIP
// override the corresponding file values when set. CI pins versions
// through them without shipping a config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the config file environment pointer.
const EnvConfigFile = "BISONPY_CONFIG"

// Build environment variables, the original packaging contract.
const (
	EnvBisonVersion   = "BISON_VERSION"
	EnvM4Version      = "M4_VERSION"
	EnvPackageVersion = "BISON_BIN_VERSION"
	EnvParallel       = "BISON_BUILD_PARALLEL"
	EnvStrip          = "BISON_BIN_STRIP"
)

// Config is the master configuration for bison-py.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Build configures the compile pipeline.
	Build BuildConfig `yaml:"build"`

	// Wheel configures the packaging step.
	Wheel WheelConfig `yaml:"wheel"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for bison-py data.
	Root string `yaml:"root"`

	// Cache is where downloaded tarballs and their manifest live.
	Cache string `yaml:"cache"`

	// Stage is the scratch area for extraction and intermediate
	// installs. Cleared on every build.
	Stage string `yaml:"stage"`

	// Payload is where the finished bison install tree is staged.
	Payload string `yaml:"payload"`

	// Dist is where finished wheels and snapshots are written.
	Dist string `yaml:"dist"`
}

// BuildConfig configures the compile pipeline.
type BuildConfig struct {
	// BisonVersion pins the bison release. Empty means discover the
	// newest from the mirror, falling back to the pinned default.
	BisonVersion string `yaml:"bison_version"`

	// M4Version pins the m4 release. Empty means the pinned default;
	// m4 is never discovered.
	M4Version string `yaml:"m4_version"`

	// Parallel is the make -j level.
	Parallel int `yaml:"parallel"`

	// Strip runs strip over staged binaries after install.
	Strip bool `yaml:"strip"`

	// TarballFormat is the upstream compression format, "xz" or "gz".
	TarballFormat string `yaml:"tarball_format"`

	// Mirror overrides the GNU mirror base URL.
	Mirror string `yaml:"mirror"`
}

// WheelConfig configures the packaging step.
type WheelConfig struct {
	// Name is the distribution name.
	Name string `yaml:"name"`

	// Version overrides the package version (defaults to the bison
	// version).
	Version string `yaml:"version"`

	// PlatformTag overrides the host-derived wheel platform tag.
	PlatformTag string `yaml:"platform_tag"`
}

// Default returns the default configuration: everything under
// ~/.cache/bison-py, four-way make parallelism, xz tarballs.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".cache", "bison-py")

	return &Config{
		Paths: PathsConfig{
			Root:    root,
			Cache:   filepath.Join(root, "cache"),
			Stage:   filepath.Join(root, "stage"),
			Payload: filepath.Join(root, "payload"),
			Dist:    filepath.Join(root, "dist"),
		},
		Build: BuildConfig{
			Parallel:      4,
			TarballFormat: "xz",
		},
	}
}

// Load loads configuration from the BISONPY_CONFIG environment
// variable if set, otherwise returns defaults with environment
// overrides applied.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigFile)
	if path == "" {
		cfg := Default()
		cfg.applyEnvironment()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, then applies
// the build environment overrides and path expansion.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironment()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironment applies the documented build environment variables
// over the file values.
func (c *Config) applyEnvironment() {
	if v := os.Getenv(EnvBisonVersion); v != "" {
		c.Build.BisonVersion = v
	}
	if v := os.Getenv(EnvM4Version); v != "" {
		c.Build.M4Version = v
	}
	if v := os.Getenv(EnvPackageVersion); v != "" {
		c.Wheel.Version = v
	}
	if v := os.Getenv(EnvParallel); v != "" {
		if parallel, err := strconv.Atoi(v); err == nil && parallel > 0 {
			c.Build.Parallel = parallel
		}
	}
	if v := os.Getenv(EnvStrip); v != "" {
		c.Build.Strip = v == "1"
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"BISONPY_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["BISONPY_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Cache = expandVars(c.Paths.Cache, vars)
	c.Paths.Stage = expandVars(c.Paths.Stage, vars)
	c.Paths.Payload = expandVars(c.Paths.Payload, vars)
	c.Paths.Dist = expandVars(c.Paths.Dist, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Build.Parallel < 1 {
		errs = append(errs, fmt.Errorf("build.parallel must be at least 1"))
	}
	switch c.Build.TarballFormat {
	case "xz", "gz":
	default:
		errs = append(errs, fmt.Errorf("build.tarball_format must be xz or gz, got %q", c.Build.TarballFormat))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.Cache, c.Paths.Stage, c.Paths.Payload, c.Paths.Dist} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
