// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

package gnu

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trim21/bison-py/lib/clock"
)

// bisonListing is a trimmed copy of the real ftp.gnu.org/gnu/bison/
// listing: every release ships as .tar.gz and .tar.xz, with signature
// files alongside.
const bisonListing = `
<a href="bison-3.7.6.tar.gz">bison-3.7.6.tar.gz</a>
<a href="bison-3.7.6.tar.gz.sig">bison-3.7.6.tar.gz.sig</a>
<a href="bison-3.7.6.tar.xz">bison-3.7.6.tar.xz</a>
<a href="bison-3.8.tar.gz">bison-3.8.tar.gz</a>
<a href="bison-3.8.1.tar.xz">bison-3.8.1.tar.xz</a>
<a href="bison-3.8.2.tar.gz">bison-3.8.2.tar.gz</a>
<a href="bison-3.8.2.tar.xz">bison-3.8.2.tar.xz</a>
<a href="bison-3.10.tar.xz">bison-3.10.tar.xz</a>
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseVersions(t *testing.T) {
	versions := ParseVersions(bisonListing, "bison")
	want := []string{"3.7.6", "3.8", "3.8.1", "3.8.2", "3.10"}
	if len(versions) != len(want) {
		t.Fatalf("got %v, want %v", versions, want)
	}
	for i := range want {
		if versions[i] != want[i] {
			t.Errorf("versions[%d] = %q, want %q", i, versions[i], want[i])
		}
	}
}

func TestParseVersionsIgnoresOtherProjects(t *testing.T) {
	listing := `<a href="m4-1.4.19.tar.xz">m4-1.4.19.tar.xz</a>`
	if got := ParseVersions(listing, "bison"); len(got) != 0 {
		t.Errorf("ParseVersions matched foreign tarballs: %v", got)
	}
}

func TestCompareVersionsNumericOrdering(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"3.8.2", "3.10", -1},
		{"3.10", "3.8.2", 1},
		{"3.8", "3.8.0", 0},
		{"1.4.19", "1.4.19", 0},
		{"2.0", "10.0", -1},
	}
	for _, c := range cases {
		if got := CompareVersions(c.a, c.b); got != c.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestLatestVersionFromIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bison/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, bisonListing)
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL: server.URL,
		Logger:  quietLogger(),
	})
	if got := client.LatestVersion(context.Background(), "bison", "9.9.9"); got != "3.10" {
		t.Errorf("LatestVersion = %q, want %q", got, "3.10")
	}
}

func TestLatestVersionFallbackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusInternalServerError)
	}))
	defer server.Close()

	fake := clock.Fake(time.Unix(0, 0))
	done := make(chan string, 1)
	client := NewClient(Config{
		BaseURL: server.URL,
		Clock:   fake,
		Logger:  quietLogger(),
	})
	go func() {
		done <- client.LatestVersion(context.Background(), "bison", "3.8.2")
	}()

	// The client backs off between the first failure and the retry.
	for fake.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	fake.Advance(time.Second)

	select {
	case got := <-done:
		if got != "3.8.2" {
			t.Errorf("LatestVersion = %q, want fallback %q", got, "3.8.2")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fallback")
	}
}

func TestLatestVersionFallbackOnEmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>no releases here</body></html>")
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Logger: quietLogger()})
	if got := client.LatestVersion(context.Background(), "bison", "3.8.2"); got != "3.8.2" {
		t.Errorf("LatestVersion = %q, want fallback", got)
	}
}

func TestVersionsRetriesOnce(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		io.WriteString(w, bisonListing)
	}))
	defer server.Close()

	fake := clock.Fake(time.Unix(0, 0))
	client := NewClient(Config{
		BaseURL: server.URL,
		Clock:   fake,
		Logger:  quietLogger(),
	})

	type result struct {
		versions []string
		err      error
	}
	done := make(chan result, 1)
	go func() {
		versions, err := client.Versions(context.Background(), "bison")
		done <- result{versions, err}
	}()

	for fake.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	fake.Advance(time.Second)

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Versions: %v", res.err)
		}
		if requests != 2 {
			t.Errorf("expected 2 index requests, got %d", requests)
		}
		if len(res.versions) == 0 || res.versions[len(res.versions)-1] != "3.10" {
			t.Errorf("versions = %v", res.versions)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for retry result")
	}
}

func TestVersionsNoRetryOnNotFound(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer server.Close()

	// A fake clock with no Advance: if the 404 were retried, Versions
	// would block on the backoff and the test would time out.
	fake := clock.Fake(time.Unix(0, 0))
	client := NewClient(Config{
		BaseURL: server.URL,
		Clock:   fake,
		Logger:  quietLogger(),
	})

	_, err := client.Versions(context.Background(), "no-such-project")
	if err == nil {
		t.Fatal("expected error for missing project index")
	}
	if requests != 1 {
		t.Errorf("expected 1 index request for a 404, got %d", requests)
	}
}

func TestDownloadURL(t *testing.T) {
	client := NewClient(Config{Logger: quietLogger()})
	got := client.DownloadURL("bison", "3.8.2", "xz")
	want := "https://ftp.gnu.org/gnu/bison/bison-3.8.2.tar.xz"
	if got != want {
		t.Errorf("DownloadURL = %q, want %q", got, want)
	}
}
