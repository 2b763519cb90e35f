// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package builder orchestrates the build-from-source pipeline that
// turns upstream GNU release tarballs into a staged bison install
// tree (the wheel payload).
//
// The pipeline is strictly sequential:
//
//  1. m4 is fetched, extracted, and built into a private prefix
//     inside the stage root with --disable-dependency-tracking
//     --enable-static --enable-shared. bison's configure needs a
//     modern m4 and host systems frequently lack one.
//  2. bison is fetched, extracted, and built into the payload prefix
//     with --disable-nls --enable-relocatable, with the staged m4
//     exported through both PATH and the M4 environment variable.
//  3. If requested, staged binaries are stripped; strip failures are
//     non-fatal.
//  4. The payload is verified: bin/bison must exist and be
//     executable.
//
// External commands run through [toolchain.Runner], so tests exercise
// the orchestration (argument assembly, environment threading, step
// ordering) without compiling anything. Downloads go through the
// verified cache in lib/fetch; extraction through lib/archive.
package builder
