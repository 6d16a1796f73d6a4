// ABOUTME: Test helpers for config tests
// ABOUTME: Provides utilities for environment variable management

package config

import (
	"os"
	"testing"
)

// withCleanUpstreamEnv clears the environment, sets the required upstream
// env var to a test value, and returns a cleanup function that restores the
// original env. Use with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withCleanUpstreamEnv(t))
//	    // Environment is cleared, UPSTREAM_API_URL is set
//	}
func withCleanUpstreamEnv(t *testing.T) func() {
	t.Helper()
	return withCleanUpstreamEnvAndExtra(t, nil)
}

// withCleanUpstreamEnvAndExtra clears the environment, sets the required
// upstream env var plus additional vars, and returns a cleanup function that
// restores the original env. Use with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withCleanUpstreamEnvAndExtra(t, map[string]string{
//	        "ENVIRONMENT": "production",
//	    }))
//	}
func withCleanUpstreamEnvAndExtra(t *testing.T, extra map[string]string) func() {
	t.Helper()

	// Save entire environment
	originalEnv := os.Environ()

	// Clear environment for clean slate
	os.Clearenv()

	// Point at a .env that never exists so developer files don't leak in
	os.Setenv("ENV_FILE", t.TempDir()+"/missing.env")
	os.Setenv("UPSTREAM_API_URL", "https://id.example.com")

	for key, value := range extra {
		os.Setenv(key, value)
	}

	// Return cleanup function that restores original environment
	return func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i := 0; i < len(env); i++ {
				if env[i] == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}
}
