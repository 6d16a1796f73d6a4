// ABOUTME: Shared fixtures for command tests
// ABOUTME: Starts a gateway over the fake identity API and resets global flags

package cmd

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

// startGateway serves the gateway and points the CLI flags at it.
func startGateway(t *testing.T) *identitytest.Server {
	t.Helper()

	fake := identitytest.New()
	fake.AddUser(testEmail, testPassword, models.UserProfile{
		ID:         "u-1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Role:       "admin",
		IsVerified: true,
		IsActive:   true,
	})
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
		PublicRoutes:         []string{"/"},
		LoginRoute:           "/login",
		RegisterRoute:        "/register",
		LandingRoute:         "/wallet",
		GuardSkipPrefixes:    []string{"/api"},
		RateLimitEnabled:     true,
		RateLimitAuth:        100,
		RateLimitRefresh:     100,
		RateLimitDefault:     100,
	}
	identity := services.NewIdentityClient(upstream.URL, services.IdentityPaths{
		Profile:  identitytest.ProfilePath,
		Refresh:  identitytest.RefreshPath,
		Login:    identitytest.LoginPath,
		Logout:   identitytest.LogoutPath,
		Register: identitytest.RegisterPath,
	}, nil)
	h, err := handlers.NewHandler(cfg, identity, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	srv := httptest.NewServer(h.Router(handlers.NewLimiters(cfg, nil)))
	t.Cleanup(srv.Close)

	setFlags(t, srv.URL, "", false)
	return fake
}

// setFlags overrides the global flags for one test.
func setFlags(t *testing.T, url, token string, asJSON bool) {
	t.Helper()
	apiURL, accessToken, jsonOutput = url, token, asJSON
	t.Cleanup(func() {
		apiURL, accessToken, jsonOutput = "", "", false
	})
}
