// Package auth implements Google sign-in restricted to one email domain,
// server-side sessions, and the admin password hashing.
package auth

import (
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"campusweb/internal/model"
)

var (
	// ErrInvalidToken is returned when the identity credential cannot be
	// decoded.
	ErrInvalidToken = errors.New("invalid token")

	// ErrDomainNotAllowed is returned when the signed-in email is outside
	// the allowed domain.
	ErrDomainNotAllowed = errors.New("email domain not allowed")
)

// Claims is the subset of the Google ID token payload the site uses.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HostedDomain  string `json:"hd"`
	jwtv5.RegisteredClaims
}

// DecodeCredential decodes the payload of a GSI credential. The signature
// is not verified.
func DecodeCredential(credential string) (*Claims, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckDomain reports ErrDomainNotAllowed unless email ends with
// "@"+domain. The comparison ignores case.
func CheckDomain(email, domain string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))
	if email == "" || domain == "" || !strings.HasSuffix(email, "@"+domain) {
		return ErrDomainNotAllowed
	}
	return nil
}

// UserFromClaims builds the session profile for a decoded credential.
func UserFromClaims(c *Claims, loginTime time.Time) model.User {
	return model.User{
		ID:        c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		Picture:   c.Picture,
		Domain:    c.HostedDomain,
		LoginTime: loginTime.UTC(),
	}
}
