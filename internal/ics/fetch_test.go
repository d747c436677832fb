package ics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestFetchOneUsesETagCache(t *testing.T) {
	var hits, conditional atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditional.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(weeklyICS))
	}))

	f := NewFetcher(t.TempDir())
	src := Source{ID: "remote", URL: srv.URL + "/calendar.ics?token=secret"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	if first.FromCache || string(first.Body) != weeklyICS {
		t.Errorf("first fetch: FromCache=%v len=%d", first.FromCache, len(first.Body))
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if !second.FromCache || string(second.Body) != weeklyICS {
		t.Errorf("second fetch should come from cache after 304")
	}
	if conditional.Load() != 1 {
		t.Errorf("expected one conditional request, got %d", conditional.Load())
	}

	// With the server gone the cached body is still served.
	srv.Close()
	third, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("offline fetch failed: %v", err)
	}
	if !third.FromCache {
		t.Error("offline fetch should use the cache")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetchOneErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	if _, err := f.FetchOne(context.Background(), Source{ID: "x", URL: srv.URL}); err == nil {
		t.Error("expected error for 404 without cache")
	}
}

func TestFetchOneRejectsHTML(t *testing.T) {
	var login atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if login.Load() {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<!doctype html><title>Sign in</title>"))
			return
		}
		w.Write([]byte("\xef\xbb\xbf" + weeklyICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "portal", URL: srv.URL}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatalf("feed with BOM rejected: %v", err)
	}

	login.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if !res.FromCache {
		t.Error("HTML response should fall back to the cached feed")
	}

	fresh := NewFetcher(t.TempDir())
	if _, err := fresh.FetchOne(context.Background(), src); !errors.Is(err, ErrNotICS) {
		t.Errorf("err = %v, want ErrNotICS", err)
	}
}

func TestFetchAllLocalFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.ics")
	if err := os.WriteFile(good, []byte(weeklyICS), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "good", File: good},
		{ID: "missing", File: filepath.Join(dir, "missing.ics")},
		{ID: "empty"},
	})

	if len(results) != 1 || results[0].Source.ID != "good" {
		t.Errorf("results = %+v", results)
	}
	if len(errs) != 2 || !errors.Is(errs[1], ErrNoLocation) {
		t.Errorf("expected 2 errors ending with ErrNoLocation, got %v", errs)
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://calendar.google.com/calendar/ical/abc%40group/private-123/basic.ics", "https://calendar.google.com/...(redacted)"},
		{"http://localhost:8080", "http://localhost:8080/...(redacted)"},
		{"not a url", "ics://...(redacted)"},
	}
	for _, tt := range tests {
		if got := redactURL(tt.in); got != tt.want {
			t.Errorf("redactURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := (Source{File: "/srv/cal.ics"}).Redacted(); got != "/srv/cal.ics" {
		t.Errorf("file source redacted to %q", got)
	}
}
