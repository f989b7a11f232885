package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "chronos/internal/log"
)

// Source represents a single ICS subscription.
type Source struct {
	// ID is an internal identifier (e.g., config ICS ID).
	ID string
	// URL is an http(s) endpoint, a file:// URL or a plain file path.
	URL string
}

// FetchResult contains the outcome of fetching a single ICS source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // true if the cached body was reused
}

// cacheEntry holds HTTP cache metadata for a single ICS URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher fetches ICS feeds with HTTP caching (ETag / Last-Modified) backed
// by a per-URL disk cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// FetchAll fetches all sources. Per-source errors are logged and returned;
// results only hold sources that produced a body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error

	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			appLog.Error("ics fetch failed", err, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		results = append(results, res)
	}

	return results, errs
}

// FetchOne fetches a single source. Local files are read directly; HTTP
// sources honor ETag/Last-Modified and fall back to the cache on failure.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, errors.New("source URL is empty")
	}
	if path, ok := localPath(src.URL); ok {
		body, err := os.ReadFile(path)
		if err != nil {
			return FetchResult{}, err
		}
		return FetchResult{Source: src, Body: body}, nil
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))

	fallback := func(reason error) (FetchResult, error) {
		if len(cachedBody) == 0 {
			return FetchResult{}, reason
		}
		appLog.Error("ics fetch failed, using cached body", reason, "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fallback(err)
		}
		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "id", src.ID, "url", redactURL(src.URL))
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		return fallback(errors.New(resp.Status))
	}
}

// localPath reports whether raw names a local file.
func localPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "file://") {
		return strings.TrimPrefix(raw, "file://"), true
	}
	if !strings.Contains(raw, "://") {
		return raw, true
	}
	return "", false
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
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

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a subscription URL for logs.
// Private feed URLs often carry tokens in the path or query.
func redactURL(raw string) string {
	if _, ok := localPath(raw); ok {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
