package ics

import (
	"bytes"
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
	"time"

	appLog "campusweb/internal/log"
)

const (
	// maxBodyBytes bounds a single feed download.
	maxBodyBytes = 8 << 20

	userAgent = "campusweb-calendar/1.0"
)

var (
	ErrNoLocation = errors.New("source has neither URL nor file")
	ErrNotICS     = errors.New("response is not an iCalendar document")
)

// Source is one calendar feed: a subscription URL or a local .ics file.
type Source struct {
	ID   string
	URL  string
	File string // used when URL is empty
}

// Redacted returns a log-safe description of the source.
func (s Source) Redacted() string {
	if s.URL == "" {
		return s.File
	}
	return redactURL(s.URL)
}

// FetchResult is the body obtained for one source.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool
}

// feedCache keeps the last good body of each URL on disk, next to the
// validators needed for a conditional GET.
type feedCache struct {
	dir string
	now func() time.Time
}

type feedMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

func (c feedCache) path(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8]))
}

// load returns the cached validators and body. Missing or corrupt entries
// read as empty.
func (c feedCache) load(rawURL string) (feedMeta, []byte) {
	p := c.path(rawURL)
	body, err := os.ReadFile(filepath.Join(p, "body.ics"))
	if err != nil {
		return feedMeta{}, nil
	}
	var meta feedMeta
	if data, err := os.ReadFile(filepath.Join(p, "meta.json")); err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	if meta.URL != rawURL {
		meta = feedMeta{}
	}
	return meta, body
}

func (c feedCache) store(meta feedMeta, body []byte) error {
	p := c.path(meta.URL)
	if err := os.MkdirAll(p, 0o700); err != nil {
		return err
	}
	// Body first so meta never describes a body that is not there.
	if err := os.WriteFile(filepath.Join(p, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.StoredAt = c.now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(p, "meta.json"), data, 0o600)
}

// Fetcher downloads feeds with conditional requests and serves the last
// good copy when a feed is unreachable or returns garbage.
type Fetcher struct {
	client *http.Client
	cache  feedCache
}

// NewFetcher returns a Fetcher caching feeds under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client: &http.Client{Timeout: 15 * time.Second},
		cache:  feedCache{dir: cacheDir, now: time.Now},
	}
}

// FetchAll fetches every source in order. Failed sources are logged and
// reported in the error slice; results only hold sources that produced a
// body.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]FetchResult, []error) {
	results := make([]FetchResult, 0, len(sources))
	var errs []error
	for _, src := range sources {
		res, err := f.FetchOne(ctx, src)
		if err != nil {
			appLog.Error("ics: fetch failed", err, "id", src.ID, "source", src.Redacted())
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FetchOne reads a local file or downloads a URL.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	switch {
	case src.URL != "":
		return f.fetchURL(ctx, src)
	case src.File != "":
		body, err := os.ReadFile(src.File)
		if err != nil {
			return FetchResult{}, err
		}
		if !looksLikeICS(body) {
			return FetchResult{}, fmt.Errorf("%s: %w", src.File, ErrNotICS)
		}
		return FetchResult{Source: src, Body: body}, nil
	default:
		return FetchResult{}, ErrNoLocation
	}
}

func (f *Fetcher) fetchURL(ctx context.Context, src Source) (FetchResult, error) {
	meta, cached := f.cache.load(src.URL)

	// fallback serves the cached body after a failed download.
	fallback := func(cause error) (FetchResult, error) {
		if len(cached) == 0 {
			return FetchResult{}, cause
		}
		appLog.Warn("ics: serving cached feed", "id", src.ID, "source", src.Redacted(), "cause", cause.Error())
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	if len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	started := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		if len(cached) == 0 {
			return FetchResult{}, errors.New("304 Not Modified without a cached body")
		}
		appLog.Debug("ics: feed not modified", "id", src.ID, "source", src.Redacted())
		return FetchResult{Source: src, Body: cached, FromCache: true}, nil

	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fallback(err)
		}
		if !looksLikeICS(body) {
			return fallback(ErrNotICS)
		}
		err = f.cache.store(feedMeta{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}, body)
		if err != nil {
			appLog.Error("ics: cache write failed", err, "id", src.ID)
		}
		appLog.Info("ics: feed downloaded",
			"id", src.ID,
			"source", src.Redacted(),
			"bytes", len(body),
			"duration", time.Since(started).String(),
		)
		return FetchResult{Source: src, Body: body}, nil

	default:
		return fallback(fmt.Errorf("unexpected status %s", resp.Status))
	}
}

// looksLikeICS rejects HTML login pages and other non-calendar bodies that
// some hosts return with a 200.
func looksLikeICS(body []byte) bool {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	body = bytes.TrimLeft(body, " \t\r\n")
	return len(body) >= 15 && bytes.EqualFold(body[:15], []byte("BEGIN:VCALENDAR"))
}

// redactURL keeps scheme and host only; subscription URLs often carry a
// private token in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
