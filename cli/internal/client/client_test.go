// ABOUTME: Tests for the portal gateway API client
// ABOUTME: Exercises the cookie jar round trip against a real router

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/services/identitytest"
)

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://bad"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q) expected error", raw)
		}
	}
}

func TestHealth_Success(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.RateLimitStore != "disabled" {
		t.Errorf("expected rate limit store disabled, got %s", resp.RateLimitStore)
	}
}

func TestHealth_ConnectionError(t *testing.T) {
	c := newClient(t, "http://localhost:99999")
	if _, err := c.Health(context.Background()); err == nil {
		t.Error("expected connection error, got nil")
	}
}

func TestHealth_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
	}))
	defer server.Close()

	c := newClient(t, server.URL)
	if _, err := c.Health(context.Background()); err == nil {
		t.Error("expected error for non-OK status, got nil")
	}
}

func TestCanceledContext(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Session(ctx)
	if err == nil || err.Error() != "request canceled" {
		t.Errorf("Session() error = %v, want request canceled", err)
	}
}

func TestSession_NoCookie(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	resp, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Authenticated || resp.User != nil {
		t.Errorf("Session() = %+v, want unauthenticated", resp)
	}
	if gw.fake.TotalCalls() != 0 {
		t.Errorf("expected no upstream calls, got %d", gw.fake.TotalCalls())
	}
}

func TestLogin_CookieFlowsToSession(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)
	ctx := context.Background()

	login, err := c.Login(ctx, models.LoginRequest{Email: testEmail, Password: testPassword})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if login.RefreshToken == "" {
		t.Error("expected a refresh token in the login response")
	}
	if c.AccessToken() == "" {
		t.Fatal("expected the jar to hold the session cookie after login")
	}

	session, err := c.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !session.Authenticated || session.User == nil || session.User.Email != testEmail {
		t.Errorf("Session() = %+v, want authenticated as %s", session, testEmail)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	_, err := c.Login(context.Background(), models.LoginRequest{Email: testEmail, Password: "nope"})
	if !IsUnauthorized(err) {
		t.Fatalf("Login() error = %v, want 401", err)
	}
	if c.AccessToken() != "" {
		t.Error("expected no session cookie after failed login")
	}
}

func TestRefresh(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)
	ctx := context.Background()

	token, err := gw.fake.IssueRefreshToken(testEmail)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Refresh(ctx, token)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if resp.NewRefreshToken == "" || resp.NewRefreshToken == token {
		t.Errorf("expected a rotated refresh token, got %q", resp.NewRefreshToken)
	}
	if c.AccessToken() == "" {
		t.Error("expected the jar to hold the session cookie after refresh")
	}

	if _, err := c.Refresh(ctx, token); !IsUnauthorized(err) {
		t.Errorf("second Refresh() with spent token error = %v, want 401", err)
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	_, err := c.Refresh(context.Background(), "")
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("Refresh(\"\") error = %v, want 400", err)
	}
	if gw.fake.Calls(identitytest.RefreshPath) != 0 {
		t.Error("expected no upstream refresh call")
	}
}

func TestSetAccessToken(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)

	token, err := gw.fake.IssueAccessToken(testEmail)
	if err != nil {
		t.Fatal(err)
	}
	c.SetAccessToken(token)

	if c.AccessToken() != token {
		t.Errorf("AccessToken() = %q, want seeded token", c.AccessToken())
	}
	session, err := c.Session(context.Background())
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !session.Authenticated {
		t.Error("expected seeded token to authenticate")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)
	ctx := context.Background()

	if _, err := c.Login(ctx, models.LoginRequest{Email: testEmail, Password: testPassword}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if c.AccessToken() != "" {
		t.Error("expected the expired cookie to be dropped from the jar")
	}
	if gw.fake.Calls(identitytest.LogoutPath) != 1 {
		t.Errorf("expected one upstream logout, got %d", gw.fake.Calls(identitytest.LogoutPath))
	}
}

func TestClear(t *testing.T) {
	gw := newGateway(t)
	c := newClient(t, gw.url)
	c.SetAccessToken("stale")

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if c.AccessToken() != "" {
		t.Error("expected cookie to be cleared")
	}
	if gw.fake.TotalCalls() != 0 {
		t.Errorf("expected no upstream calls, got %d", gw.fake.TotalCalls())
	}
}

func TestAPIError_Message(t *testing.T) {
	if got := (&APIError{StatusCode: 500}).Error(); got != "backend returned status 500" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&APIError{StatusCode: 401, Message: "nope"}).Error(); got != "backend error (401): nope" {
		t.Errorf("Error() = %q", got)
	}
}
