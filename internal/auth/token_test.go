package auth

import (
	"errors"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// makeCredential builds a GSI-shaped ID token. The signature is irrelevant
// because DecodeCredential does not verify it.
func makeCredential(t *testing.T, email string) string {
	t.Helper()
	claims := Claims{
		Email:         email,
		EmailVerified: true,
		Name:          "Test Student",
		Picture:       "https://example.com/p.png",
		HostedDomain:  "sastra.ac.in",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   "1234567890",
			Issuer:    "https://accounts.google.com",
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("not-google"))
	if err != nil {
		t.Fatalf("failed to sign test credential: %v", err)
	}
	return token
}

func TestDecodeCredential(t *testing.T) {
	claims, err := DecodeCredential(makeCredential(t, "student@sastra.ac.in"))
	if err != nil {
		t.Fatalf("DecodeCredential failed: %v", err)
	}
	if claims.Email != "student@sastra.ac.in" || claims.Subject != "1234567890" || claims.HostedDomain != "sastra.ac.in" {
		t.Errorf("unexpected claims %+v", claims)
	}

	user := UserFromClaims(claims, time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC))
	if user.ID != "1234567890" || user.Name != "Test Student" || user.Domain != "sastra.ac.in" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestDecodeCredentialInvalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"one segment", "abc"},
		{"garbage payload", "eyJhbGciOiJIUzI1NiJ9.!!!.sig"},
		{"non-json payload", "eyJhbGciOiJIUzI1NiJ9.bm90IGpzb24.sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCredential(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("DecodeCredential(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func TestCheckDomain(t *testing.T) {
	tests := []struct {
		email  string
		domain string
		ok     bool
	}{
		{"student@sastra.ac.in", "sastra.ac.in", true},
		{"Student@SASTRA.AC.IN", "sastra.ac.in", true},
		{"student@sastra.ac.in", "@sastra.ac.in", true},
		{"student@gmail.com", "sastra.ac.in", false},
		{"student@evilsastra.ac.in", "sastra.ac.in", false},
		{"sastra.ac.in", "sastra.ac.in", false},
		{"", "sastra.ac.in", false},
		{"student@sastra.ac.in", "", false},
	}

	for _, tt := range tests {
		err := CheckDomain(tt.email, tt.domain)
		if tt.ok && err != nil {
			t.Errorf("CheckDomain(%q, %q) = %v, want nil", tt.email, tt.domain, err)
		}
		if !tt.ok && !errors.Is(err, ErrDomainNotAllowed) {
			t.Errorf("CheckDomain(%q, %q) = %v, want ErrDomainNotAllowed", tt.email, tt.domain, err)
		}
	}
}
