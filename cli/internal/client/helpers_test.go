// ABOUTME: Test gateway for the CLI client
// ABOUTME: Runs the real router in front of the fake identity API

package client

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/handlers"
	"github.com/markalston/portal-gateway/models"
	"github.com/markalston/portal-gateway/services"
	"github.com/markalston/portal-gateway/services/identitytest"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

type gateway struct {
	url  string
	fake *identitytest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()

	fake := identitytest.New()
	fake.AddUser(testEmail, testPassword, models.UserProfile{ID: "u-1", FirstName: "Ada", IsActive: true})
	upstream := fake.Start()
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		Environment:          config.EnvironmentDevelopment,
		UpstreamURL:          upstream.URL,
		UpstreamProfilePath:  identitytest.ProfilePath,
		UpstreamRefreshPath:  identitytest.RefreshPath,
		UpstreamLoginPath:    identitytest.LoginPath,
		UpstreamLogoutPath:   identitytest.LogoutPath,
		UpstreamRegisterPath: identitytest.RegisterPath,
		SessionMaxAge:        time.Hour,
		Locales:              []string{"en"},
		DefaultLocale:        "en",
		PublicRoutes:         []string{"/", "/login"},
		LoginRoute:           "/login",
		RegisterRoute:        "/register",
		LandingRoute:         "/wallet",
		GuardSkipPrefixes:    []string{"/api"},
	}

	h, err := handlers.NewHandler(cfg, services.NewIdentityClient(upstream.URL, services.IdentityPaths{
		Profile:  identitytest.ProfilePath,
		Refresh:  identitytest.RefreshPath,
		Login:    identitytest.LoginPath,
		Logout:   identitytest.LogoutPath,
		Register: identitytest.RegisterPath,
	}, nil), nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	srv := httptest.NewServer(h.Router(handlers.NewLimiters(cfg, nil)))
	t.Cleanup(srv.Close)
	return &gateway{url: srv.URL, fake: fake}
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(url)
	if err != nil {
		t.Fatalf("New(%q) error = %v", url, err)
	}
	return c
}
