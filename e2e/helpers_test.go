// ABOUTME: Test helpers for e2e tests
// ABOUTME: Boots the gateway from environment configuration in front of the fake identity API

package e2e

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/handlers"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/notify"
	"github.com/markalston/portal-gateway/services"
	"github.com/markalston/portal-gateway/services/identitytest"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
	testUserID   = "u-1"
)

// eventLog records bus events.
type eventLog struct {
	mu    sync.Mutex
	kinds []notify.Kind
}

func (l *eventLog) record(e notify.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, e.Kind)
}

func (l *eventLog) all() []notify.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]notify.Kind(nil), l.kinds...)
}

// stack is one gateway replica with its upstream.
type stack struct {
	fake    *identitytest.Server
	gateway *httptest.Server
	cfg     *config.Config
	events  *eventLog
}

// withTestEnv sets the variables every gateway needs plus extra, all
// restored when the test ends.
func withTestEnv(t *testing.T, upstreamURL string, extra map[string]string) {
	t.Helper()

	t.Setenv("ENV_FILE", "testdata-does-not-exist.env")
	t.Setenv("UPSTREAM_API_URL", upstreamURL)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("COOKIE_SECURE", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	for key, value := range extra {
		t.Setenv(key, value)
	}
}

// newStack loads configuration from the environment and serves a gateway.
func newStack(t *testing.T, env map[string]string) *stack {
	t.Helper()
	fake := identitytest.New()
	fake.AddUser(testEmail, testPassword, models.UserProfile{ID: testUserID, FirstName: "Ada", IsActive: true, IsVerified: true})
	upstream := fake.Start()
	t.Cleanup(upstream.Close)

	return newReplica(t, fake, upstream.URL, env, nil)
}

// newReplica serves another gateway over an existing upstream. rdb shares
// rate limit counters between replicas when non-nil.
func newReplica(t *testing.T, fake *identitytest.Server, upstreamURL string, env map[string]string, rdb *redis.Client) *stack {
	t.Helper()
	withTestEnv(t, upstreamURL, env)

	cfg, err := config.Load()
	require.NoError(t, err)

	identity, err := services.NewIdentityClientFromConfig(cfg)
	require.NoError(t, err)

	bus := notify.New()
	events := &eventLog{}
	t.Cleanup(bus.Subscribe(events.record))

	h, err := handlers.NewHandler(cfg, identity, bus)
	require.NoError(t, err)

	gateway := httptest.NewServer(h.Router(handlers.NewLimiters(cfg, rdb)))
	t.Cleanup(gateway.Close)

	return &stack{fake: fake, gateway: gateway, cfg: cfg, events: events}
}

// browser returns a client that keeps cookies and does not follow redirects.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// sessionCookie returns the access_token cookie the jar holds for s.
func (s *stack) sessionCookie(t *testing.T, c *http.Client) string {
	t.Helper()
	u, err := url.Parse(s.gateway.URL)
	require.NoError(t, err)
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == services.SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// seedSession puts a freshly minted access token into the browser's jar.
func (s *stack) seedSession(t *testing.T, c *http.Client) string {
	t.Helper()
	token, err := s.fake.IssueAccessToken(testEmail)
	require.NoError(t, err)
	s.seedSessionToken(t, c, token)
	return token
}

// seedSessionToken puts token into the browser's jar.
func (s *stack) seedSessionToken(t *testing.T, c *http.Client, token string) {
	t.Helper()
	u, err := url.Parse(s.gateway.URL)
	require.NoError(t, err)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: services.SessionCookieName, Value: token, Path: "/"}})
}
