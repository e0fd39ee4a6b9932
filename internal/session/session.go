package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the diary API issues after a successful login.
const CookieName = "session_token"

var (
	// ErrMissingToken indicates an empty session token.
	ErrMissingToken = errors.New("session: token required")
	// ErrNotFound indicates no session is stored for the API.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired indicates a stored session whose token has expired.
	ErrExpired = errors.New("session: token expired")
)

// Claims is what the client can learn about a session token without the
// server's signing key. Opaque tokens carry no readable claims.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	Opaque    bool
}

// Expired reports whether the token expiry is known and not after now.
func (c Claims) Expired(now time.Time) bool {
	if c.Opaque || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// Inspect reads the registered claims of a JWT session token without
// verifying its signature. Tokens that are not JWTs are reported as opaque.
func Inspect(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingToken
	}
	registered := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, registered); err != nil {
		return Claims{Opaque: true}, nil
	}
	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time.UTC()
	}
	return claims, nil
}

// TokenFromCookies returns the session token among cookies.
func TokenFromCookies(cookies []*http.Cookie) (string, bool) {
	for _, cookie := range cookies {
		if cookie != nil && cookie.Name == CookieName && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// Cookie builds the session cookie for seeding an HTTP cookie jar.
func Cookie(token string) *http.Cookie {
	return &http.Cookie{Name: CookieName, Value: token, Path: "/"}
}
