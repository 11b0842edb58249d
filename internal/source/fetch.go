package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "confcal/internal/log"
)

// FetchResult contains the outcome of fetching a single conference file.
type FetchResult struct {
	URL       string
	Body      []byte // JSON payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused cached body
	NotFound  bool   // true if the server answered 404; Body is then "[]"
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var emptyList = []byte("[]")

// Fetcher downloads conference files with HTTP caching
// (ETag / Last-Modified) and a disk-backed cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a new Fetcher.
//
// cacheDir is the base directory where per-URL cache subdirectories and
// metadata will be stored. A zero timeout defaults to 15 seconds.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/conference-cache"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		cacheDir: cacheDir,
	}
}

// FetchOne fetches a single URL, honoring ETag and Last-Modified.
//
// A 404 is not an error: the file for that year simply does not exist yet.
// On network errors and other non-OK statuses a previously cached body is
// returned when available.
func (f *Fetcher) FetchOne(ctx context.Context, url string) (FetchResult, error) {
	if url == "" {
		return FetchResult{}, errors.New("fetch: URL is empty")
	}

	cachePath, err := f.cachePathForURL(url)
	if err != nil {
		return FetchResult{}, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("Accept", "application/json")

	// Conditional headers only make sense when the body they validate is on disk.
	if len(cachedBody) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("conference fetch start", "url", url)

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 && ctx.Err() == nil {
			appLog.Warn("conference fetch network error, using cached body", err, "url", url)
			return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, fmt.Errorf("fetch %s: read body: %w", url, readErr)
		}

		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// Log but still return the freshly fetched body.
			appLog.Warn("conference cache save failed", err, "url", url)
		}

		appLog.Info("conference fetch success", "url", url, "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{URL: url, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, fmt.Errorf("fetch %s: received 304 Not Modified but no cached body available", url)
		}
		appLog.Debug("conference fetch not modified; using cache", "url", url)
		return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil

	case http.StatusNotFound:
		appLog.Info("conference file not found; treating as empty", "url", url)
		return FetchResult{URL: url, Body: emptyList, NotFound: true}, nil

	default:
		statusErr := fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
		if len(cachedBody) > 0 {
			appLog.Warn("conference fetch non-OK, using cached body", statusErr, "url", url, "status", resp.StatusCode)
			return FetchResult{URL: url, Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, statusErr
	}
}

func (f *Fetcher) cachePathForURL(url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	sum := sha256.Sum256([]byte(url))
	// Use first 16 hex chars as directory name.
	dir := hex.EncodeToString(sum[:8])
	return filepath.Join(f.cacheDir, dir), nil
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
