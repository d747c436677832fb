package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusweb/internal/config"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

// SessionCookie holds the opaque session ID.
const SessionCookie = "campusweb_session"

// Session is the request-scoped sign-in state.
type Session struct {
	ID   string
	User *model.User
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool {
	return s.User != nil
}

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by Manager.Middleware, or an
// anonymous session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey{}).(Session)
	return s
}

// Manager signs users in and out and restores sessions from cookies.
type Manager struct {
	store  Store
	domain string
	ttl    time.Duration
	cookie config.CookieConfig
	now    func() time.Time
}

// NewManager creates a Manager persisting profiles in store.
func NewManager(cfg config.AuthConfig, store Store) *Manager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{
		store:  store,
		domain: cfg.AllowedDomain,
		ttl:    ttl,
		cookie: cfg.Cookie,
		now:    time.Now,
	}
}

// Domain returns the allowed email domain.
func (m *Manager) Domain() string {
	return m.domain
}

// SignIn decodes credential, enforces the domain rule, stores the profile
// and sets the session cookie. Nothing is stored on failure.
func (m *Manager) SignIn(ctx context.Context, w http.ResponseWriter, credential string) (model.User, error) {
	claims, err := DecodeCredential(credential)
	if err != nil {
		return model.User{}, err
	}
	if err := CheckDomain(claims.Email, m.domain); err != nil {
		appLog.Warn("auth: sign-in rejected", "email_domain", emailDomain(claims.Email), "allowed", m.domain)
		return model.User{}, err
	}

	user := UserFromClaims(claims, m.now())
	data, err := json.Marshal(user)
	if err != nil {
		return model.User{}, fmt.Errorf("encode session: %w", err)
	}

	id := uuid.NewString()
	if err := m.store.Set(ctx, id, data, m.ttl); err != nil {
		return model.User{}, fmt.Errorf("store session: %w", err)
	}

	http.SetCookie(w, m.sessionCookie(id, int(m.ttl.Seconds())))
	appLog.Info("auth: signed in", "user_id", user.ID)
	return user, nil
}

// Restore loads the profile for a session ID. A stored profile whose
// email no longer passes the domain check is deleted and reported as
// ErrDomainNotAllowed; a corrupt record is deleted and reported as
// ErrSessionNotFound.
func (m *Manager) Restore(ctx context.Context, id string) (model.User, error) {
	if id == "" {
		return model.User{}, ErrSessionNotFound
	}
	data, err := m.store.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		appLog.Error("auth: corrupt session record", err)
		m.store.Delete(ctx, id)
		return model.User{}, ErrSessionNotFound
	}
	if err := CheckDomain(user.Email, m.domain); err != nil {
		m.store.Delete(ctx, id)
		return model.User{}, err
	}
	return user, nil
}

// SignOut deletes the stored session and expires the cookie.
func (m *Manager) SignOut(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.sessionCookie("", -1))

	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	return m.store.Delete(ctx, c.Value)
}

// Middleware restores the session from the cookie and stores it in the
// request context. Cookies pointing at missing or rejected sessions are
// cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var s Session
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			user, err := m.Restore(r.Context(), c.Value)
			switch {
			case err == nil:
				s = Session{ID: c.Value, User: &user}
			case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrDomainNotAllowed):
				http.SetCookie(w, m.sessionCookie("", -1))
			default:
				appLog.Error("auth: session restore failed", err)
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func (m *Manager) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: parseSameSite(m.cookie.SameSite),
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func emailDomain(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}
