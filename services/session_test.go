// ABOUTME: Tests for the session cookie store
// ABOUTME: Verifies cookie attributes on set and clear, and presence detection on read

package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func responseCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestSessionCookies_Set(t *testing.T) {
	store := NewSessionCookies(true, 7*24*time.Hour)
	rec := httptest.NewRecorder()

	store.Set(rec, " token-123 ")

	c := responseCookie(t, rec)
	if c.Name != SessionCookieName {
		t.Errorf("Name = %q, want %q", c.Name, SessionCookieName)
	}
	if c.Value != "token-123" {
		t.Errorf("Value = %q, want trimmed token", c.Value)
	}
	if !c.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if !c.Secure {
		t.Error("cookie must be Secure when configured")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}
	if c.MaxAge != 604800 {
		t.Errorf("MaxAge = %d, want 604800", c.MaxAge)
	}
}

func TestSessionCookies_ClearMatchesSetAttributes(t *testing.T) {
	for _, secure := range []bool{true, false} {
		store := NewSessionCookies(secure, time.Hour)

		setRec := httptest.NewRecorder()
		store.Set(setRec, "token")
		set := responseCookie(t, setRec)

		clearRec := httptest.NewRecorder()
		store.Clear(clearRec)
		cleared := responseCookie(t, clearRec)

		if cleared.Value != "" {
			t.Errorf("cleared Value = %q, want empty", cleared.Value)
		}
		if cleared.MaxAge >= 0 {
			t.Errorf("cleared MaxAge = %d, want negative (Max-Age=0 on the wire)", cleared.MaxAge)
		}
		if !cleared.Expires.Before(time.Now()) {
			t.Errorf("cleared Expires = %v, want a past time", cleared.Expires)
		}
		if cleared.Name != set.Name || cleared.Path != set.Path || cleared.HttpOnly != set.HttpOnly ||
			cleared.Secure != set.Secure || cleared.SameSite != set.SameSite || cleared.Domain != set.Domain {
			t.Errorf("attribute mismatch: set=%+v cleared=%+v", set, cleared)
		}
	}
}

func TestReadSessionCookie(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		want   string
		ok     bool
	}{
		{"absent", nil, "", false},
		{"empty", &http.Cookie{Name: SessionCookieName, Value: ""}, "", false},
		{"whitespace", &http.Cookie{Name: SessionCookieName, Value: "   "}, "", false},
		{"other cookie", &http.Cookie{Name: "lang", Value: "fr"}, "", false},
		{"present", &http.Cookie{Name: SessionCookieName, Value: "abc"}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			got, ok := ReadSessionCookie(req)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ReadSessionCookie() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}

	if _, ok := ReadSessionCookie(nil); ok {
		t.Error("nil request must report no cookie")
	}
}
