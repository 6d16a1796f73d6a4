// ABOUTME: Session cookie store holding the upstream access token
// ABOUTME: Reads, sets and clears the access_token cookie with one shared attribute set

package services

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the cookie carrying the opaque upstream access token.
const SessionCookieName = "access_token"

// SessionCookies persists the access token in an HTTP-only cookie. Set and
// Clear build their cookies from the same attributes; browsers only delete a
// cookie when name, path and flags match the one they hold.
type SessionCookies struct {
	secure bool
	maxAge time.Duration
}

// NewSessionCookies creates a cookie store. secure marks cookies Secure
// (production over TLS); maxAge is the lifetime of a freshly set cookie.
func NewSessionCookies(secure bool, maxAge time.Duration) *SessionCookies {
	return &SessionCookies{secure: secure, maxAge: maxAge}
}

// Read returns the trimmed access token when the cookie is present and non-empty.
func (s *SessionCookies) Read(r *http.Request) (string, bool) {
	return ReadSessionCookie(r)
}

// Set stores token in the session cookie.
func (s *SessionCookies) Set(w http.ResponseWriter, token string) {
	c := s.cookie(strings.TrimSpace(token))
	c.MaxAge = int(s.maxAge.Seconds())
	http.SetCookie(w, c)
}

// Clear expires the session cookie immediately.
func (s *SessionCookies) Clear(w http.ResponseWriter) {
	c := s.cookie("")
	c.MaxAge = -1 // emitted as Max-Age=0
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// cookie returns the attribute set shared by Set and Clear.
func (s *SessionCookies) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ReadSessionCookie returns the trimmed access token from r. It is shared
// by the handlers and the route guard so both agree on what "present" means.
func ReadSessionCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}
