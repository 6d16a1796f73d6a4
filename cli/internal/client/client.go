// ABOUTME: HTTP client for the portal gateway API
// ABOUTME: Carries the session cookie between calls with a cookie jar

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/markalston/portal-gateway/handlers"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/services"
)

// Client is the API client for the portal gateway. The gateway sets the
// access token as an HttpOnly cookie; the jar replays it on later calls.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        http.CookieJar
}

// New creates a client for baseURL.
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// SetAccessToken seeds the session cookie, as a browser that logged in earlier would hold it.
func (c *Client) SetAccessToken(token string) {
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  services.SessionCookieName,
		Value: token,
		Path:  "/",
	}})
}

// AccessToken returns the session cookie value currently held, if any.
func (c *Client) AccessToken() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == services.SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (*handlers.HealthResponse, error) {
	var health handlers.HealthResponse
	status, err := c.do(ctx, http.MethodGet, "/api/health", nil, &health)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d", status)
	}
	return &health, nil
}

// Session calls the "who am I" endpoint. It never fails on a 200 answer;
// an unreachable upstream is reported through SessionResponse.Error.
func (c *Client) Session(ctx context.Context) (*models.SessionResponse, error) {
	var session models.SessionResponse
	status, err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &session)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d", status)
	}
	return &session, nil
}

// Login exchanges credentials for a session cookie and a refresh token.
func (c *Client) Login(ctx context.Context, creds models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	status, err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		return nil, &APIError{StatusCode: status, Message: resp.Error}
	}
	return &resp, nil
}

// Refresh trades refreshToken for a new session cookie.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.RefreshResponse, error) {
	var resp models.RefreshResponse
	status, err := c.do(ctx, http.MethodPost, "/api/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		return nil, &APIError{StatusCode: status, Message: resp.Error}
	}
	return &resp, nil
}

// Logout revokes the session upstream and clears the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.status(ctx, "/api/auth/logout")
}

// Clear drops the session cookie without contacting the upstream.
func (c *Client) Clear(ctx context.Context) error {
	return c.status(ctx, "/api/auth/clear")
}

func (c *Client) status(ctx context.Context, path string) error {
	var resp models.StatusResponse
	status, err := c.do(ctx, http.MethodPost, path, nil, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK || !resp.Success {
		return &APIError{StatusCode: status, Message: resp.Error}
	}
	return nil
}

// APIError is a non-success answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend error (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the gateway.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("invalid response from backend (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}
