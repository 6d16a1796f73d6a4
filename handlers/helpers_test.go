// ABOUTME: Shared fixtures for handler tests
// ABOUTME: Builds a handler wired to the in-process fake identity API

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/notify"
	"github.com/markalston/portal-gateway/services"
	"github.com/markalston/portal-gateway/services/identitytest"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Port:                 "8080",
		Environment:          config.EnvironmentDevelopment,
		UpstreamURL:          upstreamURL,
		UpstreamProfilePath:  identitytest.ProfilePath,
		UpstreamRefreshPath:  identitytest.RefreshPath,
		UpstreamLoginPath:    identitytest.LoginPath,
		UpstreamLogoutPath:   identitytest.LogoutPath,
		UpstreamRegisterPath: identitytest.RegisterPath,
		SessionMaxAge:        7 * 24 * time.Hour,
		Locales:              []string{"en", "fr", "de", "es"},
		DefaultLocale:        "en",
		PublicRoutes:         []string{"/", "/login", "/register", "/launchpad", "/pricing"},
		LoginRoute:           "/login",
		RegisterRoute:        "/register",
		LandingRoute:         "/wallet",
		GuardSkipPrefixes:    []string{"/api", "/_internal", "/static"},
		RateLimitAuth:        5,
		RateLimitRefresh:     10,
		RateLimitDefault:     100,
	}
}

// recordedEvents collects bus events for assertions.
type recordedEvents struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordedEvents) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fixture struct {
	handler  *Handler
	fake     *identitytest.Server
	upstream *httptest.Server
	cfg      *config.Config
	events   *recordedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, nil)
}

func newFixtureWithConfig(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	fake := identitytest.New()
	fake.AddUser(testEmail, testPassword, models.UserProfile{
		ID:         "u-1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "ada",
		Role:       "user",
		IsVerified: true,
		IsActive:   true,
	})
	upstream := fake.Start()
	t.Cleanup(upstream.Close)

	cfg := testConfig(upstream.URL)
	if mutate != nil {
		mutate(cfg)
	}

	client, err := services.NewIdentityClientFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewIdentityClientFromConfig: %v", err)
	}

	bus := notify.New()
	events := &recordedEvents{}
	bus.Subscribe(func(e notify.Event) {
		events.mu.Lock()
		events.events = append(events.events, e)
		events.mu.Unlock()
	})

	h, err := NewHandler(cfg, client, bus)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	return &fixture{handler: h, fake: fake, upstream: upstream, cfg: cfg, events: events}
}

func (f *fixture) accessToken(t *testing.T) string {
	t.Helper()
	token, err := f.fake.IssueAccessToken(testEmail)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return token
}

func (f *fixture) refreshToken(t *testing.T) string {
	t.Helper()
	token, err := f.fake.IssueRefreshToken(testEmail)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	return token
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withSessionCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: services.SessionCookieName, Value: token})
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// sessionCookie returns the access_token Set-Cookie of rec, or nil.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == services.SessionCookieName {
			return c
		}
	}
	return nil
}
