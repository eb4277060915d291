package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/ytsync/internal/auth"
	"github.com/joescharf/ytsync/internal/output"
)

var (
	loginURL   string
	loginToken string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against a YouTrack server",
	Long: `Validates the permanent token against the server and stores both in
the encrypted credential file. Stored credentials are reused by every
later command until 'ytsync logout'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if loginURL == "" || loginToken == "" {
			return fmt.Errorf("both --url and --token are required")
		}

		m := getAuthManager()
		unsubscribe := m.Subscribe(func(state auth.State) {
			ui.VerboseLog("auth state: %s", state)
		})
		defer unsubscribe()

		if !m.Authenticate(ctx, strings.TrimRight(loginURL, "/"), loginToken) {
			return fmt.Errorf("authentication failed: token rejected by %s", loginURL)
		}

		user, err := m.Client().CurrentUser(ctx)
		if err != nil {
			ui.Success("Logged in to %s", m.BaseURL())
			return nil
		}
		ui.Success("Logged in to %s as %s", m.BaseURL(), user.Login)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := getAuthManager()
		m.Initialize(cmd.Context())
		m.Logout()
		ui.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m := getAuthManager()
		if !m.Initialize(ctx) {
			ui.Info("State: %s", output.AuthStateColor(string(m.State())))
			return nil
		}

		ui.Info("State:  %s", output.AuthStateColor(string(m.State())))
		ui.Info("Server: %s", m.BaseURL())

		user, err := m.Client().CurrentUser(ctx)
		if err != nil {
			ui.Warning("could not load current user: %v", err)
			return nil
		}
		ui.Info("User:   %s (%s)", user.FullName, user.Login)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginURL, "url", "", "YouTrack base URL, e.g. https://example.youtrack.cloud")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Permanent token")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
