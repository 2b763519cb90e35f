// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package wheel

import (
	"errors"
	"fmt"
	"strings"
)

// Defaults for the distribution metadata, matching the published
// package.
const (
	DefaultName           = "bison-bin"
	DefaultSummary        = "Prebuilt GNU Bison packaged as a platform wheel"
	DefaultLicense        = "GPL-3.0-or-later"
	DefaultRequiresPython = ">=3.8"
)

// Metadata describes the distribution being packed.
type Metadata struct {
	// Name is the distribution name. Defaults to DefaultName.
	Name string

	// Version is the package version. Defaults to BisonVersion: the
	// package exists to deliver bison, so its version tracks bison's
	// unless a repack suffix is needed.
	Version string

	// BisonVersion is the bundled bison release. Required.
	BisonVersion string

	// Summary, License, RequiresPython default to the package
	// constants above.
	Summary        string
	License        string
	RequiresPython string
}

// normalize fills defaults and validates required fields.
func (m *Metadata) normalize() error {
	if m.BisonVersion == "" {
		return errors.New("wheel metadata: bison version is required")
	}
	if m.Name == "" {
		m.Name = DefaultName
	}
	if m.Version == "" {
		m.Version = m.BisonVersion
	}
	if m.Summary == "" {
		m.Summary = DefaultSummary
	}
	if m.License == "" {
		m.License = DefaultLicense
	}
	if m.RequiresPython == "" {
		m.RequiresPython = DefaultRequiresPython
	}
	return nil
}

// escapedName returns the distribution name in wheel filename form
// (PEP 503 normalization: runs of -, _, . become a single _).
func (m *Metadata) escapedName() string {
	name := strings.ToLower(m.Name)
	for _, r := range []string{"-", "."} {
		name = strings.ReplaceAll(name, r, "_")
	}
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return name
}

// distInfoDir returns the .dist-info directory name.
func (m *Metadata) distInfoDir() string {
	return fmt.Sprintf("%s-%s.dist-info", m.escapedName(), m.Version)
}

// Filename returns the wheel filename for the given platform tag.
func (m *Metadata) Filename(platformTag string) string {
	return fmt.Sprintf("%s-%s-%s-%s-%s.whl",
		m.escapedName(), m.Version, PythonTag, ABITag, platformTag)
}

// metadataFile renders the dist-info METADATA contents.
func (m *Metadata) metadataFile() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Metadata-Version: 2.1\n")
	fmt.Fprintf(&builder, "Name: %s\n", m.Name)
	fmt.Fprintf(&builder, "Version: %s\n", m.Version)
	fmt.Fprintf(&builder, "Summary: %s\n", m.Summary)
	fmt.Fprintf(&builder, "License: %s\n", m.License)
	fmt.Fprintf(&builder, "Requires-Python: %s\n", m.RequiresPython)
	fmt.Fprintf(&builder, "Classifier: Development Status :: 4 - Beta\n")
	fmt.Fprintf(&builder, "Classifier: Intended Audience :: Developers\n")
	fmt.Fprintf(&builder, "Classifier: Topic :: Software Development :: Code Generators\n")
	fmt.Fprintf(&builder, "\nPrebuilt GNU Bison %s with its runtime data files, plus\n", m.BisonVersion)
	fmt.Fprintf(&builder, "console scripts forwarding to the bundled bison and yacc.\n")
	return builder.String()
}

// wheelFile renders the dist-info WHEEL contents.
func (m *Metadata) wheelFile(platformTag, generatorVersion string) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Wheel-Version: 1.0\n")
	fmt.Fprintf(&builder, "Generator: bison-py (%s)\n", generatorVersion)
	fmt.Fprintf(&builder, "Root-Is-Purelib: false\n")
	fmt.Fprintf(&builder, "Tag: %s-%s-%s\n", PythonTag, ABITag, platformTag)
	return builder.String()
}

// entryPointsFile renders the console-script declarations.
func entryPointsFile() string {
	return "[console_scripts]\n" +
		"bison = bison_bin._wrapper:main_bison\n" +
		"yacc = bison_bin._wrapper:main_yacc\n"
}

// versionFile renders the generated _version.py.
func (m *Metadata) versionFile() string {
	return fmt.Sprintf("__version__ = %q\nBISON_VERSION = %q\n", m.Version, m.BisonVersion)
}
