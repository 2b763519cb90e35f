// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package wheel

import (
	"fmt"
	"runtime"
)

// PythonTag is the interpreter tag for all wheels this package
// produces. The shims are plain Python 3 with no compiled extension,
// so the ABI tag is always "none".
const (
	PythonTag = "py3"
	ABITag    = "none"
)

// PlatformTag returns the wheel platform tag for an OS/architecture
// pair. Linux payloads are tagged manylinux2014: the toolchain builds
// against the host glibc, and CentOS-7-era glibc 2.17 is the floor the
// release CI images guarantee. Unknown pairs return an error rather
// than guessing; publishing a wheel with a wrong tag breaks installs
// in ways that only surface at exec time.
func PlatformTag(goos, goarch string) (string, error) {
	switch goos + "/" + goarch {
	case "linux/amd64":
		return "manylinux2014_x86_64", nil
	case "linux/arm64":
		return "manylinux2014_aarch64", nil
	case "darwin/amd64":
		return "macosx_10_9_x86_64", nil
	case "darwin/arm64":
		return "macosx_11_0_arm64", nil
	default:
		return "", fmt.Errorf("no wheel platform tag for %s/%s", goos, goarch)
	}
}

// HostPlatformTag returns the platform tag for the build host.
func HostPlatformTag() (string, error) {
	return PlatformTag(runtime.GOOS, runtime.GOARCH)
}
