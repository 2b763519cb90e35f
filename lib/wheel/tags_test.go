// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package wheel

import "testing"

func TestPlatformTag(t *testing.T) {
	cases := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "manylinux2014_x86_64"},
		{"linux", "arm64", "manylinux2014_aarch64"},
		{"darwin", "amd64", "macosx_10_9_x86_64"},
		{"darwin", "arm64", "macosx_11_0_arm64"},
	}
	for _, c := range cases {
		got, err := PlatformTag(c.goos, c.goarch)
		if err != nil {
			t.Errorf("PlatformTag(%s, %s): %v", c.goos, c.goarch, err)
			continue
		}
		if got != c.want {
			t.Errorf("PlatformTag(%s, %s) = %q, want %q", c.goos, c.goarch, got, c.want)
		}
	}
}

func TestPlatformTagUnknown(t *testing.T) {
	if _, err := PlatformTag("plan9", "386"); err == nil {
		t.Error("PlatformTag guessed a tag for an unsupported platform")
	}
}

func TestMetadataEscapedName(t *testing.T) {
	m := Metadata{Name: "Bison-Bin", BisonVersion: "3.8.2"}
	if err := m.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got := m.Filename("manylinux2014_x86_64"); got != "bison_bin-3.8.2-py3-none-manylinux2014_x86_64.whl" {
		t.Errorf("Filename = %q", got)
	}
}
