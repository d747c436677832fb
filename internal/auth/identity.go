package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"campusweb/internal/config"
)

// Google Identity Services endpoints and cookie names.
const (
	GSIScriptURL   = "https://accounts.google.com/gsi/client"
	gsiCSRFCookie  = "g_csrf_token"
	gsiStateCookie = "g_state"
)

var (
	// ErrMissingCredential is returned when the callback carries no
	// credential.
	ErrMissingCredential = errors.New("missing credential")

	// ErrCSRFMismatch is returned when the g_csrf_token double-submit
	// check fails.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
)

// ButtonConfig is what a page needs to render the sign-in button.
type ButtonConfig struct {
	ClientID     string
	HostedDomain string
	LoginURI     string
	ScriptURL    string
}

// IdentityClient abstracts the identity provider so handlers can be
// tested without Google.
type IdentityClient interface {
	// Initialize returns the client-side configuration for the sign-in
	// button.
	Initialize() ButtonConfig
	// RequestCredential extracts the credential posted back by the
	// provider.
	RequestCredential(r *http.Request) (string, error)
	// SignOut clears provider state kept in the browser.
	SignOut(w http.ResponseWriter)
}

// GoogleClient is the Google Identity Services adapter in redirect mode.
type GoogleClient struct {
	clientID string
	domain   string
	loginURI string
}

// NewGoogleClient creates the adapter from auth configuration.
func NewGoogleClient(cfg config.AuthConfig) *GoogleClient {
	return &GoogleClient{
		clientID: cfg.ClientID,
		domain:   cfg.AllowedDomain,
		loginURI: cfg.LoginURI,
	}
}

func (g *GoogleClient) Initialize() ButtonConfig {
	return ButtonConfig{
		ClientID:     g.clientID,
		HostedDomain: g.domain,
		LoginURI:     g.loginURI,
		ScriptURL:    GSIScriptURL,
	}
}

// RequestCredential reads the redirect-mode POST. GSI sets the
// g_csrf_token cookie and posts the same value in the form body.
func (g *GoogleClient) RequestCredential(r *http.Request) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}

	cookie, err := r.Cookie(gsiCSRFCookie)
	if err != nil || cookie.Value == "" {
		return "", ErrCSRFMismatch
	}
	body := r.PostFormValue(gsiCSRFCookie)
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(body)) != 1 {
		return "", ErrCSRFMismatch
	}

	credential := r.PostFormValue("credential")
	if credential == "" {
		return "", ErrMissingCredential
	}
	return credential, nil
}

// SignOut expires the One Tap state cookie so auto-select does not sign
// the user straight back in.
func (g *GoogleClient) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   gsiStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
