// Copyright 2026 The bison-py Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch provides a verified download cache for upstream source
// tarballs. Each cached file is recorded in a manifest with its BLAKE3
// digest; a cache hit is only served after the digest has been
// re-verified, and a corrupted file is silently re-downloaded. The
// manifest is CBOR-encoded (lib/codec) so rewrites are byte-stable.
package fetch

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/trim21/bison-py/lib/clock"
	"github.com/trim21/bison-py/lib/codec"
)

// manifestName is the manifest filename inside the cache directory.
const manifestName = "manifest.cbor"

// Entry records the provenance and integrity of one cached file.
type Entry struct {
	// URL the file was downloaded from.
	URL string `cbor:"url"`

	// Size in bytes.
	Size int64 `cbor:"size"`

	// Digest is the hex-encoded BLAKE3 digest of the file content.
	Digest string `cbor:"digest"`

	// FetchedAt is the download time as Unix seconds.
	FetchedAt int64 `cbor:"fetched_at"`
}

// manifest is the on-disk index of the cache directory.
type manifest struct {
	Entries map[string]Entry `cbor:"entries"`
}

// Config holds configuration for creating a Cache.
type Config struct {
	// Dir is the cache directory. Created if missing. Required.
	Dir string

	// HTTPClient is used for downloads. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides manifest timestamps. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Cache is a directory of downloaded tarballs with integrity tracking.
// It is not safe for concurrent use; the build pipeline is sequential.
type Cache struct {
	dir        string
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	index      manifest
}

// New opens (or initializes) the cache at config.Dir and loads its
// manifest.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		return nil, errors.New("fetch: cache directory is required")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	cache := &Cache{
		dir:        config.Dir,
		httpClient: config.HTTPClient,
		clock:      config.Clock,
		logger:     config.Logger,
		index:      manifest{Entries: make(map[string]Entry)},
	}
	if cache.httpClient == nil {
		cache.httpClient = http.DefaultClient
	}
	if cache.clock == nil {
		cache.clock = clock.Real()
	}
	if cache.logger == nil {
		cache.logger = slog.Default()
	}

	data, err := os.ReadFile(filepath.Join(config.Dir, manifestName))
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fresh cache.
	case err != nil:
		return nil, fmt.Errorf("reading cache manifest: %w", err)
	default:
		if err := codec.Unmarshal(data, &cache.index); err != nil {
			// A mangled manifest is not fatal: drop it and re-verify
			// by re-downloading on demand.
			cache.logger.Warn("cache manifest unreadable, starting fresh", "error", err)
			cache.index = manifest{Entries: make(map[string]Entry)}
		}
		if cache.index.Entries == nil {
			cache.index.Entries = make(map[string]Entry)
		}
	}
	return cache, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns where filename lives (or would live) in the cache.
func (c *Cache) Path(filename string) string {
	return filepath.Join(c.dir, filename)
}

// Fetch returns the path of a verified local copy of url, downloading
// it as filename into the cache if necessary. A cached file whose
// digest no longer matches the manifest is re-downloaded.
func (c *Cache) Fetch(ctx context.Context, url, filename string) (string, error) {
	path := c.Path(filename)

	if entry, ok := c.index.Entries[filename]; ok {
		err := verifyFile(path, entry)
		if err == nil {
			c.logger.Debug("cache hit", "file", filename, "digest", entry.Digest)
			return path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cached file failed verification, re-downloading",
				"file", filename, "error", err)
		}
	}

	entry, err := c.download(ctx, url, path)
	if err != nil {
		return "", err
	}
	entry.URL = url
	entry.FetchedAt = c.clock.Now().Unix()

	c.index.Entries[filename] = entry
	if err := c.saveManifest(); err != nil {
		return "", err
	}
	return path, nil
}

// Verify re-checks the digest of a cached file against the manifest.
func (c *Cache) Verify(filename string) error {
	entry, ok := c.index.Entries[filename]
	if !ok {
		return fmt.Errorf("%s is not in the cache manifest", filename)
	}
	return verifyFile(c.Path(filename), entry)
}

// Entry returns the manifest entry for filename, if present.
func (c *Cache) Entry(filename string) (Entry, bool) {
	entry, ok := c.index.Entries[filename]
	return entry, ok
}

// download streams url into path (via a .partial temp file so an
// interrupted download never looks like a cached file) and returns the
// size and digest of the downloaded content.
func (c *Cache) download(ctx context.Context, url, path string) (Entry, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("building download request: %w", err)
	}

	c.logger.Info("downloading", "url", url)
	response, err := c.httpClient.Do(request)
	if err != nil {
		return Entry{}, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("downloading %s: HTTP %d", url, response.StatusCode)
	}

	partial := path + ".partial"
	file, err := os.Create(partial)
	if err != nil {
		return Entry{}, fmt.Errorf("creating %s: %w", partial, err)
	}

	hasher := blake3.New()
	size, err := io.Copy(io.MultiWriter(file, hasher), response.Body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return Entry{}, fmt.Errorf("writing %s: %w", partial, err)
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)
		return Entry{}, fmt.Errorf("finalizing download: %w", err)
	}

	return Entry{
		Size:   size,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// saveManifest writes the manifest atomically (temp file + rename).
func (c *Cache) saveManifest() error {
	data, err := codec.Marshal(c.index)
	if err != nil {
		return fmt.Errorf("encoding cache manifest: %w", err)
	}
	path := filepath.Join(c.dir, manifestName)
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache manifest: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		return fmt.Errorf("replacing cache manifest: %w", err)
	}
	return nil
}

// verifyFile checks that the file at path matches the recorded size
// and BLAKE3 digest.
func verifyFile(path string, entry Entry) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != entry.Size {
		return fmt.Errorf("%s is %d bytes, manifest says %d", path, info.Size(), entry.Size)
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	digest := hex.EncodeToString(hasher.Sum(nil))
	if digest != entry.Digest {
		return fmt.Errorf("%s digest %s does not match manifest %s", path, digest, entry.Digest)
	}
	return nil
}
