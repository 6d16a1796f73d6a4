// ABOUTME: End-to-end tests for the edge middleware configured from the environment
// ABOUTME: Covers CORS, cross-site origin rejection and rate limits shared through Redis

package e2e

import (
	"io"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markalston/portal-gateway/handlers"
	"github.com/markalston/portal-gateway/middleware"
	"github.com/markalston/portal-gateway/services/identitytest"
)

func TestCORS_E2E_AllowListFromEnv(t *testing.T) {
	s := newStack(t, map[string]string{
		"CORS_ALLOWED_ORIGINS": "https://www.example.com, https://app.example.com",
	})

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{name: "first listed origin", origin: "https://www.example.com", wantOrigin: "https://www.example.com"},
		{name: "whitespace trimmed entry", origin: "https://app.example.com", wantOrigin: "https://app.example.com"},
		{name: "unlisted origin", origin: "https://evil.example.net", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodOptions, s.gateway.URL+"/api/auth/refresh", nil)
			require.NoError(t, err)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestOriginCheck_E2E(t *testing.T) {
	s := newStack(t, map[string]string{
		"CORS_ALLOWED_ORIGINS": "https://www.example.com",
	})

	post := func(t *testing.T, origin string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, s.gateway.URL+"/api/auth/clear", nil)
		require.NoError(t, err)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusOK, post(t, "").StatusCode, "non-browser clients send no Origin")
	assert.Equal(t, http.StatusOK, post(t, "https://www.example.com").StatusCode)
	assert.Equal(t, http.StatusOK, post(t, s.gateway.URL).StatusCode, "same host is always allowed")

	resp := post(t, "https://evil.example.net")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestRateLimit_E2E_LoginEndpoint(t *testing.T) {
	s := newStack(t, map[string]string{
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_AUTH":    "3",
	})
	body := `{"email":"` + testEmail + `","password":"wrong"}`

	for i := 0; i < 3; i++ {
		resp := postJSON(t, http.DefaultClient, s.gateway.URL+"/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "request %d", i+1)
	}

	resp := postJSON(t, http.DefaultClient, s.gateway.URL+"/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, 3, s.fake.Calls(identitytest.LoginPath), "limited requests never reach the upstream")

	health := get(t, http.DefaultClient, s.gateway.URL+"/api/health")
	assert.Equal(t, handlers.StoreMemory, decodeBody[handlers.HealthResponse](t, health).RateLimitStore)
}

func TestRateLimit_E2E_DisabledMode(t *testing.T) {
	s := newStack(t, map[string]string{
		"RATE_LIMIT_ENABLED": "false",
		"RATE_LIMIT_AUTH":    "1",
	})
	body := `{"email":"` + testEmail + `","password":"wrong"}`

	for i := 0; i < 5; i++ {
		resp := postJSON(t, http.DefaultClient, s.gateway.URL+"/api/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "request %d", i+1)
	}
}

func TestRateLimit_E2E_RedisSharedAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := middleware.NewRedisClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	env := map[string]string{
		"RATE_LIMIT_ENABLED": "true",
		"RATE_LIMIT_REFRESH": "4",
		"REDIS_URL":          "redis://" + mr.Addr(),
	}
	fake := identitytest.New()
	upstream := fake.Start()
	t.Cleanup(upstream.Close)
	a := newReplica(t, fake, upstream.URL, env, rdb)
	b := newReplica(t, fake, upstream.URL, env, rdb)

	body := `{"refreshToken":"spent"}`
	for i, replica := range []*stack{a, b, a, b} {
		resp := postJSON(t, http.DefaultClient, replica.gateway.URL+"/api/auth/refresh", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "request %d", i+1)
	}

	resp := postJSON(t, http.DefaultClient, b.gateway.URL+"/api/auth/refresh", body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "the fifth request across replicas is over the shared limit")

	health := get(t, http.DefaultClient, a.gateway.URL+"/api/health")
	assert.Equal(t, handlers.StoreRedis, decodeBody[handlers.HealthResponse](t, health).RateLimitStore)
}

func TestOpenAPI_E2E(t *testing.T) {
	s := newStack(t, nil)

	resp := get(t, http.DefaultClient, s.gateway.URL+"/api/openapi.yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/api/auth/session")
}
