// ABOUTME: Status command for the portal CLI
// ABOUTME: Asks the gateway who the current session belongs to

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/portal-gateway/cli/internal/client"
	"github.com/markalston/portal-gateway/cli/internal/styles"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Long: `Ask the gateway whether the access token (--token or PORTAL_ACCESS_TOKEN)
is a valid session and show the user it belongs to.

Exit codes: 0 authenticated, 1 not authenticated, 2 session could not be verified.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runStatus(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// runStatus executes the session check and returns exit code
func runStatus(ctx context.Context, w io.Writer) int {
	s, err := newSession(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer s.close()

	st, err := s.auth.Check(ctx)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatStatusJSON(st))
	} else {
		fmt.Fprintln(w, formatStatusHuman(st))
	}

	switch {
	case st.Error != "":
		return 2
	case !st.Authenticated:
		return 1
	default:
		return 0
	}
}

// formatStatusHuman formats the session status for human readability
func formatStatusHuman(st client.Status) string {
	if st.Error != "" {
		return styles.Row("Session", styles.StatusWarning.Render("unverified")) + "\n" +
			styles.Row("Reason", st.Error)
	}
	if !st.Authenticated || st.User == nil {
		return styles.Row("Session", styles.StatusCritical.Render("not authenticated"))
	}

	u := st.User
	lines := []string{
		styles.Row("Session", styles.StatusOK.Render("authenticated")),
		styles.Row("User", u.Email),
		styles.Row("ID", u.ID),
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		lines = append(lines, styles.Row("Name", name))
	}
	if u.Role != "" {
		lines = append(lines, styles.Row("Role", u.Role))
	}
	lines = append(lines, styles.Row("Verified", fmt.Sprintf("%t", u.IsVerified)))
	return strings.Join(lines, "\n")
}

// formatStatusJSON formats the session status as JSON
func formatStatusJSON(st client.Status) string {
	output := map[string]interface{}{
		"authenticated": st.Authenticated,
		"user":          st.User,
	}
	if st.Error != "" {
		output["error"] = st.Error
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}
