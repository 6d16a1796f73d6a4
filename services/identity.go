// ABOUTME: Client for the upstream identity API
// ABOUTME: Fetches profiles with bearer tokens and exchanges refresh tokens and credentials

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/models"
)

// maxUpstreamBody caps how much of an upstream response is read.
const maxUpstreamBody = 1 << 20

var (
	accessTokenKeys  = []string{"accessToken", "access_token", "token"}
	refreshTokenKeys = []string{"refreshToken", "refresh_token"}
	messageKeys      = []string{"message", "error_description", "error"}
)

// IdentityPaths are the upstream endpoint paths, relative to the base URL.
type IdentityPaths struct {
	Profile  string
	Refresh  string
	Login    string
	Logout   string
	Register string
}

// TokenGrant is the result of a successful login or refresh exchange.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string // optional, the upstream may omit it
	User         *models.UserProfile
}

// RawResponse is an upstream answer relayed without interpretation.
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdentityClient talks to the upstream identity API. It holds no per-user
// state and never retries: every failure is reported to the caller as-is.
type IdentityClient struct {
	baseURL string
	paths   IdentityPaths
	client  *http.Client
}

// NewIdentityClient creates a client for baseURL. A nil httpClient uses a
// client with the transport's default behaviour and no overall timeout.
func NewIdentityClient(baseURL string, paths IdentityPaths, httpClient *http.Client) *IdentityClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &IdentityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		paths:   paths,
		client:  httpClient,
	}
}

// NewIdentityClientFromConfig builds the client described by cfg, routing
// through the SSH+SOCKS5 jump host when UPSTREAM_ALL_PROXY is set.
func NewIdentityClientFromConfig(cfg *config.Config) (*IdentityClient, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UpstreamAllProxy != "" {
		dial, err := socks5DialContext(cfg.UpstreamAllProxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = nil
		transport.DialContext = dial
	}

	paths := IdentityPaths{
		Profile:  cfg.UpstreamProfilePath,
		Refresh:  cfg.UpstreamRefreshPath,
		Login:    cfg.UpstreamLoginPath,
		Logout:   cfg.UpstreamLogoutPath,
		Register: cfg.UpstreamRegisterPath,
	}
	return NewIdentityClient(cfg.UpstreamURL, paths, &http.Client{Transport: transport}), nil
}

// Profile fetches the user behind accessToken.
func (c *IdentityClient) Profile(ctx context.Context, accessToken string) (*models.UserProfile, error) {
	const op = "profile"
	if accessToken == "" {
		return nil, ErrMissingCredential
	}

	resp, err := c.do(ctx, op, http.MethodGet, c.paths.Profile, accessToken, nil)
	if err != nil {
		return nil, err
	}
	if err := rejectNon2xx(op, resp); err != nil {
		return nil, err
	}

	profile, ok := models.ParseUserProfile(resp.Body)
	if !ok {
		return nil, &UpstreamError{Kind: KindContractViolation, Op: op, StatusCode: resp.StatusCode, Err: errors.New("no user record in response")}
	}
	return profile, nil
}

// Refresh exchanges refreshToken for a new access token.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	const op = "refresh"
	if refreshToken == "" {
		return nil, ErrMissingCredential
	}

	body, err := json.Marshal(models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encode refresh request: %w", err)
	}
	return c.exchange(ctx, op, c.paths.Refresh, body)
}

// Login exchanges user credentials for tokens.
func (c *IdentityClient) Login(ctx context.Context, creds models.LoginRequest) (*TokenGrant, error) {
	const op = "login"
	if creds.Password == "" || (creds.Email == "" && creds.Username == "") {
		return nil, ErrMissingCredential
	}

	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}
	return c.exchange(ctx, op, c.paths.Login, body)
}

// Logout asks the upstream to revoke accessToken.
func (c *IdentityClient) Logout(ctx context.Context, accessToken string) error {
	const op = "logout"
	if accessToken == "" {
		return ErrMissingCredential
	}

	resp, err := c.do(ctx, op, http.MethodPost, c.paths.Logout, accessToken, nil)
	if err != nil {
		return err
	}
	return rejectNon2xx(op, resp)
}

// Register forwards a registration body and returns the upstream answer
// verbatim. Only transport failures are reported as errors.
func (c *IdentityClient) Register(ctx context.Context, body []byte) (*RawResponse, error) {
	return c.do(ctx, "register", http.MethodPost, c.paths.Register, "", body)
}

// exchange posts a JSON body to a token-issuing endpoint and decodes the grant.
func (c *IdentityClient) exchange(ctx context.Context, op, path string, body []byte) (*TokenGrant, error) {
	resp, err := c.do(ctx, op, http.MethodPost, path, "", body)
	if err != nil {
		return nil, err
	}
	if err := rejectNon2xx(op, resp); err != nil {
		return nil, err
	}

	payload, ok := models.Unwrap(resp.Body)
	if !ok {
		return nil, &UpstreamError{Kind: KindContractViolation, Op: op, StatusCode: resp.StatusCode, Err: errors.New("response is not a JSON object")}
	}

	grant := &TokenGrant{
		AccessToken:  models.FirstString(payload, accessTokenKeys...),
		RefreshToken: models.FirstString(payload, refreshTokenKeys...),
	}
	if grant.AccessToken == "" {
		return nil, &UpstreamError{Kind: KindContractViolation, Op: op, StatusCode: resp.StatusCode, Err: errors.New("access token missing from response")}
	}
	if user := payload.Get("user"); user.IsObject() {
		grant.User = models.ProjectUser(user)
	}
	return grant, nil
}

func (c *IdentityClient) do(ctx context.Context, op, method, path, bearer string, body []byte) (*RawResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &UpstreamError{Kind: KindUnreachable, Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Kind: KindUnreachable, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, &UpstreamError{Kind: KindUnreachable, Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func rejectNon2xx(op string, resp *RawResponse) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	upErr := &UpstreamError{Kind: KindRejected, Op: op, StatusCode: resp.StatusCode}
	if payload, ok := models.Unwrap(resp.Body); ok {
		upErr.Message = models.FirstString(payload, messageKeys...)
	}
	return upErr
}
