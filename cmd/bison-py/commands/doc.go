// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the bison-py CLI command tree: version
// discovery against the GNU mirror, tarball fetching, the
// configure/make build pipeline, wheel packaging, payload path
// resolution, and environment diagnostics.
package commands
