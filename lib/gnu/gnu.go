// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package gnu discovers released versions of GNU projects from the
// ftp.gnu.org mirror index. The index is plain HTML directory listing;
// released versions are recognized by their source tarball names
// (project-X.Y[.Z].tar.{gz,bz2,xz}) and ordered numerically.
//
// Discovery is best-effort: any network, HTTP, or parse failure makes
// [Client.LatestVersion] return the caller's pinned fallback so that
// builds keep working offline or when the mirror is down.
package gnu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trim21/bison-py/lib/clock"
)

// Pinned fallback versions. Updated manually when an upstream release
// has been verified to build cleanly with this tooling.
const (
	// DefaultBisonVersion is the fallback GNU Bison version.
	DefaultBisonVersion = "3.8.2"

	// DefaultM4Version is the fallback GNU m4 version. m4 discovery
	// is not performed by default: bison is the product, m4 is a
	// build dependency that changes rarely.
	DefaultM4Version = "1.4.19"
)

// defaultBaseURL is the canonical GNU mirror root.
const defaultBaseURL = "https://ftp.gnu.org/gnu"

// retryBackoff is the wait before the single retry of a failed index
// request.
const retryBackoff = 500 * time.Millisecond

// Config holds configuration for creating a mirror index Client.
// The zero value is usable: it targets ftp.gnu.org with
// http.DefaultClient, the real clock, and the default logger.
type Config struct {
	// BaseURL is the mirror root (no trailing slash required).
	// Defaults to "https://ftp.gnu.org/gnu".
	BaseURL string

	// HTTPClient is used for index requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides the retry backoff wait. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client queries a GNU mirror's per-project directory listings.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a mirror index client from the given configuration.
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}
}

// LatestVersion returns the newest released version of project, or
// fallback if the index cannot be fetched or contains no recognizable
// tarballs. It never returns an error: discovery failures downgrade to
// the pinned fallback with a warning.
func (c *Client) LatestVersion(ctx context.Context, project, fallback string) string {
	versions, err := c.Versions(ctx, project)
	if err != nil {
		c.logger.Warn("version discovery failed, using fallback",
			"project", project,
			"fallback", fallback,
			"error", err)
		return fallback
	}
	if len(versions) == 0 {
		c.logger.Warn("no release tarballs in mirror index, using fallback",
			"project", project,
			"fallback", fallback)
		return fallback
	}
	return versions[len(versions)-1]
}

// Versions returns all released versions of project found in the
// mirror index, ordered oldest to newest. A transient failure (network
// error or 5xx response) is retried once after a short backoff.
func (c *Client) Versions(ctx context.Context, project string) ([]string, error) {
	body, err := c.fetchIndex(ctx, project)
	if err != nil {
		if !retryable(err) {
			return nil, err
		}
		c.logger.Debug("index request failed, retrying",
			"project", project, "error", err)
		select {
		case <-c.clock.After(retryBackoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		body, err = c.fetchIndex(ctx, project)
		if err != nil {
			return nil, err
		}
	}
	return ParseVersions(body, project), nil
}

// statusError is a non-OK index response, keeping the status code
// available for retry classification.
type statusError struct {
	url    string
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d", e.url, e.status)
}

// retryable reports whether an index failure is worth the single
// retry. Network and read errors are transient; for HTTP responses
// only 5xx qualifies. A 404 for a nonexistent project is deterministic
// and would just burn the backoff wait.
func retryable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.status >= 500
	}
	return true
}

// fetchIndex retrieves the raw directory listing for project.
func (c *Client) fetchIndex(ctx context.Context, project string) (string, error) {
	url := c.baseURL + "/" + project + "/"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building index request: %w", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", &statusError{url: url, status: response.StatusCode}
	}

	// Directory listings are small (tens of KB); cap reads far above
	// that so a misbehaving server cannot exhaust memory.
	body, err := io.ReadAll(io.LimitReader(response.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	return string(body), nil
}

// ParseVersions extracts the release versions of project mentioned in
// an index listing, deduplicated (each release appears once per
// compression format) and sorted oldest to newest.
func ParseVersions(listing, project string) []string {
	pattern := regexp.MustCompile(
		regexp.QuoteMeta(project) + `-(\d+\.\d+(?:\.\d+)?)\.tar\.(?:gz|bz2|xz)`)

	seen := make(map[string]struct{})
	var versions []string
	for _, match := range pattern.FindAllStringSubmatch(listing, -1) {
		version := match[1]
		if _, done := seen[version]; done {
			continue
		}
		seen[version] = struct{}{}
		versions = append(versions, version)
	}

	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
	return versions
}

// CompareVersions orders two dotted version strings numerically:
// "3.10.1" sorts after "3.8.2" even though it is lexicographically
// smaller. Missing components count as zero, so "3.8" == "3.8.0".
// Returns -1, 0, or +1.
func CompareVersions(a, b string) int {
	aParts := versionKey(a)
	bParts := versionKey(b)
	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		var aPart, bPart int
		if i < len(aParts) {
			aPart = aParts[i]
		}
		if i < len(bParts) {
			bPart = bParts[i]
		}
		switch {
		case aPart < bPart:
			return -1
		case aPart > bPart:
			return 1
		}
	}
	return 0
}

// versionKey converts a version string into its numeric components.
// Non-numeric runs are separators.
var versionDigits = regexp.MustCompile(`\d+`)

func versionKey(version string) []int {
	var key []int
	for _, digits := range versionDigits.FindAllString(version, -1) {
		n, err := strconv.Atoi(digits)
		if err != nil {
			// Unreachable for \d+ matches of sane length; treat
			// overflow-sized components as zero.
			n = 0
		}
		key = append(key, n)
	}
	return key
}

// TarballName returns the canonical source tarball filename for a
// project release in the given compression format ("xz" or "gz").
func TarballName(project, version, format string) string {
	return fmt.Sprintf("%s-%s.tar.%s", project, version, format)
}

// DownloadURL returns the mirror URL for a project release tarball.
func (c *Client) DownloadURL(project, version, format string) string {
	return c.baseURL + "/" + project + "/" + TarballName(project, version, format)
}
