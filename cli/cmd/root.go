// ABOUTME: Root command for the portal CLI
// ABOUTME: Handles global flags and builds the session-aware API client

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/markalston/portal-gateway/cli/internal/client"
	"github.com/markalston/portal-gateway/cli/internal/styles"
	"github.com/markalston/portal-gateway/notify"
)

var (
	apiURL      string
	accessToken string
	jsonOutput  bool
)

const defaultAPIURL = "http://localhost:8080"

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "portal",
	Short: "CLI for the portal gateway",
	Long: `portal is a command-line interface for the portal gateway session API.

It checks gateway health, inspects the current session and drives the
login, refresh and logout flows the way a browser would.

Environment Variables:
  PORTAL_API_URL        Gateway URL (default: http://localhost:8080)
  PORTAL_ACCESS_TOKEN   Access token to present as the session cookie
  PORTAL_REFRESH_TOKEN  Refresh token used by the refresh command`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Gateway URL (overrides PORTAL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "Access token for the session cookie (overrides PORTAL_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("PORTAL_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// GetAccessToken returns the access token from flag or env.
func GetAccessToken() string {
	if accessToken != "" {
		return accessToken
	}
	return os.Getenv("PORTAL_ACCESS_TOKEN")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// session bundles the client, its auth state and the bus that reports changes.
type session struct {
	client *client.Client
	auth   *client.AuthState
	close  func()
}

// newSession builds a client for the configured gateway. Bus events are
// printed to w as notices unless JSON output is requested.
func newSession(w io.Writer) (*session, error) {
	c, err := client.New(GetAPIURL())
	if err != nil {
		return nil, err
	}
	if token := GetAccessToken(); token != "" {
		c.SetAccessToken(token)
	}

	bus := notify.New()
	unsubscribe := func() {}
	if !IsJSONOutput() {
		unsubscribe = bus.Subscribe(func(e notify.Event) {
			fmt.Fprintln(w, styles.Notice(e))
		})
	}

	return &session{
		client: c,
		auth:   client.NewAuthState(c, client.DefaultAuthTTL, bus),
		close:  unsubscribe,
	}, nil
}
