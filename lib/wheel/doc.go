// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package wheel assembles the distributable artifact: a PEP-427
// binary wheel carrying the staged bison payload.
//
// The wheel layout is:
//
//	bison_bin/__init__.py        re-exported helpers
//	bison_bin/runtime.py         payload path resolution
//	bison_bin/_wrapper.py        console-script exec shims
//	bison_bin/_version.py        generated version constants
//	bison_bin/_bison/**          the staged install tree
//	{name}-{version}.dist-info/  METADATA, WHEEL, entry_points.txt, RECORD
//
// The Python sources are embedded in this binary and rendered at pack
// time; _version.py carries the package and bison versions. RECORD
// rows use urlsafe-base64 SHA-256 digests as the wheel spec requires.
//
// The wheel is tagged py3-none-{platform}: the payload is native code,
// so the platform tag is load-bearing, while the Python shims run on
// any CPython 3. The platform tag derives from GOOS/GOARCH and can be
// overridden for cross-staged payloads.
package wheel
