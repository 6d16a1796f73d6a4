// ABOUTME: Login, refresh and logout commands for the portal CLI
// ABOUTME: Drive the session endpoints and print the resulting tokens for scripting

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/markalston/portal-gateway/cli/internal/client"
	"github.com/markalston/portal-gateway/cli/internal/styles"
	"github.com/markalston/portal-gateway/models"
)

var (
	loginEmail    string
	loginUsername string
	loginPassword string
	refreshToken  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and obtain a session",
	Long: `Sign in through the gateway. Missing credentials are prompted for when
stdin is a terminal. With --json the access and refresh tokens are printed so
scripts can export them as PORTAL_ACCESS_TOKEN and PORTAL_REFRESH_TOKEN.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		creds := models.LoginRequest{Email: loginEmail, Username: loginUsername, Password: loginPassword}
		if loginPassword == "" {
			creds.Password = os.Getenv("PORTAL_PASSWORD")
		}
		interactive := term.IsTerminal(int(os.Stdin.Fd()))

		exitCode := runLogin(ctx, os.Stdout, creds, interactive)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange a refresh token for a new session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		token := refreshToken
		if token == "" {
			token = os.Getenv("PORTAL_REFRESH_TOKEN")
		}

		exitCode := runRefresh(ctx, os.Stdout, token)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and clear the cookie",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "Account username (instead of email)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (or PORTAL_PASSWORD)")
	refreshCmd.Flags().StringVar(&refreshToken, "refresh-token", "", "Refresh token (overrides PORTAL_REFRESH_TOKEN)")

	rootCmd.AddCommand(loginCmd, refreshCmd, logoutCmd)
}

// promptCredentials asks for whatever creds is missing.
var promptCredentials = func(ctx context.Context, creds *models.LoginRequest) error {
	var fields []huh.Field
	if creds.Email == "" && creds.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&creds.Email).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("email is required")
				}
				return nil
			}))
	}
	if creds.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx)
}

func missingCredentials(creds models.LoginRequest) bool {
	return creds.Password == "" || (creds.Email == "" && creds.Username == "")
}

// runLogin signs in and returns exit code
func runLogin(ctx context.Context, w io.Writer, creds models.LoginRequest, interactive bool) int {
	if missingCredentials(creds) {
		if !interactive {
			fmt.Fprintln(w, "Error: --email (or --username) and --password are required when stdin is not a terminal")
			return 2
		}
		if err := promptCredentials(ctx, &creds); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
	}

	s, err := newSession(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer s.close()

	st, err := s.auth.Login(ctx, creds)
	if err != nil {
		if IsJSONOutput() {
			fmt.Fprintln(w, formatErrorJSON(err))
		}
		if client.IsUnauthorized(err) {
			return 1
		}
		return 2
	}

	printTokens(w, s, st)
	return 0
}

// runRefresh exchanges token for a new session and returns exit code
func runRefresh(ctx context.Context, w io.Writer, token string) int {
	s, err := newSession(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer s.close()

	s.auth.SetRefreshToken(token)
	st, err := s.auth.Refresh(ctx)
	if err != nil {
		if IsJSONOutput() {
			fmt.Fprintln(w, formatErrorJSON(err))
		} else if errors.Is(err, client.ErrNoRefreshToken) {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		if client.IsUnauthorized(err) {
			return 1
		}
		return 2
	}

	printTokens(w, s, st)
	return 0
}

// runLogout ends the session and returns exit code
func runLogout(ctx context.Context, w io.Writer) int {
	s, err := newSession(w)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	defer s.close()

	if err := s.auth.Logout(ctx); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}
	if IsJSONOutput() {
		fmt.Fprintln(w, `{"success": true}`)
	}
	return 0
}

func printTokens(w io.Writer, s *session, st client.Status) {
	if IsJSONOutput() {
		output := map[string]interface{}{
			"user":          st.User,
			"access_token":  s.client.AccessToken(),
			"refresh_token": s.auth.RefreshToken(),
		}
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if st.User != nil {
		fmt.Fprintln(w, styles.Row("User", st.User.Email))
	}
	if s.auth.RefreshToken() == "" {
		fmt.Fprintln(w, styles.Row("Refresh token", "none issued"))
	}
	fmt.Fprintln(w, "Re-run with --json to capture the tokens.")
}

func formatErrorJSON(err error) string {
	data, _ := json.MarshalIndent(map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	}, "", "  ")
	return string(data)
}
