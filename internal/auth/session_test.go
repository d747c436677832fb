package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"campusweb/internal/config"
	"campusweb/internal/model"
)

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	m := NewManager(config.AuthConfig{AllowedDomain: "sastra.ac.in", SessionTTL: time.Hour}, store)
	m.now = func() time.Time { return time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC) }
	return m, store
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestSignInAllowedDomain(t *testing.T) {
	m, store := newTestManager()
	rec := httptest.NewRecorder()

	user, err := m.SignIn(context.Background(), rec, makeCredential(t, "student@sastra.ac.in"))
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if user.Email != "student@sastra.ac.in" || user.LoginTime.IsZero() {
		t.Errorf("unexpected user %+v", user)
	}

	c := sessionCookieFrom(t, rec)
	if c == nil || c.Value == "" || !c.HttpOnly || c.MaxAge != 3600 {
		t.Fatalf("session cookie = %+v", c)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries, want 1", store.Len())
	}

	restored, err := m.Restore(context.Background(), c.Value)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if restored.Email != user.Email || restored.ID != user.ID {
		t.Errorf("restored %+v, want %+v", restored, user)
	}
}

func TestSignInRejected(t *testing.T) {
	tests := []struct {
		name       string
		credential func(t *testing.T) string
		wantErr    error
	}{
		{"other domain", func(t *testing.T) string { return makeCredential(t, "someone@gmail.com") }, ErrDomainNotAllowed},
		{"malformed token", func(t *testing.T) string { return "not.a.jwt" }, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newTestManager()
			rec := httptest.NewRecorder()

			_, err := m.SignIn(context.Background(), rec, tt.credential(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SignIn error = %v, want %v", err, tt.wantErr)
			}
			if store.Len() != 0 {
				t.Error("no session should be stored")
			}
			if sessionCookieFrom(t, rec) != nil {
				t.Error("no cookie should be set")
			}
		})
	}
}

func TestRestoreDropsForeignDomain(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	data, _ := json.Marshal(model.User{ID: "1", Email: "old@other.edu"})
	store.Set(ctx, "stale", data, time.Hour)

	if _, err := m.Restore(ctx, "stale"); !errors.Is(err, ErrDomainNotAllowed) {
		t.Errorf("Restore error = %v, want ErrDomainNotAllowed", err)
	}
	if _, err := store.Get(ctx, "stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("foreign-domain record should be deleted")
	}
}

func TestRestoreCorruptRecord(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()
	store.Set(ctx, "bad", []byte("{not json"), time.Hour)

	if _, err := m.Restore(ctx, "bad"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Restore error = %v, want ErrSessionNotFound", err)
	}
	if store.Len() != 0 {
		t.Error("corrupt record should be deleted")
	}
}

func TestMiddlewareInjectsSession(t *testing.T) {
	m, _ := newTestManager()
	rec := httptest.NewRecorder()
	if _, err := m.SignIn(context.Background(), rec, makeCredential(t, "student@sastra.ac.in")); err != nil {
		t.Fatal(err)
	}
	cookie := sessionCookieFrom(t, rec)

	var got Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !got.Authenticated() || got.User.Email != "student@sastra.ac.in" {
		t.Errorf("session = %+v", got)
	}

	// Unknown session IDs are anonymous and the cookie is cleared.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "missing"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got.Authenticated() {
		t.Error("unknown session should be anonymous")
	}
	if c := sessionCookieFrom(t, rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("expected cleared cookie, got %+v", c)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got.Authenticated() {
		t.Error("request without cookie should be anonymous")
	}
}

func TestSignOut(t *testing.T) {
	m, store := newTestManager()
	rec := httptest.NewRecorder()
	if _, err := m.SignIn(context.Background(), rec, makeCredential(t, "student@sastra.ac.in")); err != nil {
		t.Fatal(err)
	}
	cookie := sessionCookieFrom(t, rec)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	if err := m.SignOut(context.Background(), rec, req); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}

	if store.Len() != 0 {
		t.Error("session should be deleted")
	}
	if c := sessionCookieFrom(t, rec); c == nil || c.MaxAge >= 0 {
		t.Errorf("expected expired cookie, got %+v", c)
	}
}

func TestGoogleClientRequestCredential(t *testing.T) {
	g := NewGoogleClient(config.AuthConfig{ClientID: "cid", AllowedDomain: "sastra.ac.in", LoginURI: "http://localhost/auth/google/callback"})

	tests := []struct {
		name    string
		cookie  string
		form    url.Values
		want    string
		wantErr error
	}{
		{
			name:   "valid",
			cookie: "tok",
			form:   url.Values{"credential": {"jwt"}, "g_csrf_token": {"tok"}},
			want:   "jwt",
		},
		{
			name:    "csrf mismatch",
			cookie:  "tok",
			form:    url.Values{"credential": {"jwt"}, "g_csrf_token": {"other"}},
			wantErr: ErrCSRFMismatch,
		},
		{
			name:    "missing csrf cookie",
			form:    url.Values{"credential": {"jwt"}, "g_csrf_token": {"tok"}},
			wantErr: ErrCSRFMismatch,
		},
		{
			name:    "missing credential",
			cookie:  "tok",
			form:    url.Values{"g_csrf_token": {"tok"}},
			wantErr: ErrMissingCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/google/callback", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "g_csrf_token", Value: tt.cookie})
			}

			got, err := g.RequestCredential(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("credential = %q, want %q", got, tt.want)
			}
		})
	}

	cfg := g.Initialize()
	if cfg.ClientID != "cid" || cfg.HostedDomain != "sastra.ac.in" || cfg.ScriptURL != GSIScriptURL {
		t.Errorf("Initialize() = %+v", cfg)
	}
}
