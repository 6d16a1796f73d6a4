// ABOUTME: Health command for the portal CLI
// ABOUTME: Checks gateway connectivity and reports the rate limit store

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/portal-gateway/cli/internal/styles"
	"github.com/markalston/portal-gateway/handlers"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check gateway connectivity",
	Long:  `Check connectivity to the portal gateway and show which upstream and rate limit store it uses.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runHealth(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	s, err := newSession(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer s.close()

	resp, err := s.client.Health(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(GetAPIURL(), resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(GetAPIURL(), resp))
	}
	return 0
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *handlers.HealthResponse) string {
	status := styles.StatusOK.Render(resp.Status)
	if resp.Status != "ok" {
		status = styles.StatusCritical.Render(resp.Status)
	}
	return styles.Row("Gateway", url) + "\n" +
		styles.Row("Status", status) + "\n" +
		styles.Row("Upstream", resp.Upstream) + "\n" +
		styles.Row("Rate limits", resp.RateLimitStore)
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *handlers.HealthResponse) string {
	output := map[string]interface{}{
		"gateway":          url,
		"status":           resp.Status,
		"upstream":         resp.Upstream,
		"rate_limit_store": resp.RateLimitStore,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
