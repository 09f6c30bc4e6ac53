// ABOUTME: CLI commands for the OAuth authorization flow.
// ABOUTME: Prints the authorize URL and exchanges the returned code.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/fitbit"
	"github.com/harperreed/pulse/internal/storage"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API authorization",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Print the authorization URL",
	Long: `Print the authorization URL for the wearable API.

Open the URL in a browser, approve access, and then exchange the code
from the redirect:

  pulse auth exchange <code>

Requires fitbit_client_id and fitbit_client_secret in the configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.FitbitClientID == "" || cfg.FitbitClientSecret == "" {
			return errors.New("fitbit_client_id and fitbit_client_secret must be configured")
		}

		fmt.Println("Open this URL in a browser and approve access:")
		fmt.Println()
		fmt.Println("  " + fitbit.AuthCodeURL(cfg, uuid.NewString()))
		fmt.Println()
		fmt.Println("Then run: pulse auth exchange <code>")
		return nil
	},
}

var authExchangeCmd = &cobra.Command{
	Use:   "exchange <code>",
	Short: "Exchange an authorization code for tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fitbit.Exchange(cmd.Context(), cfg, store, args[0]); err != nil {
			return fmt.Errorf("exchange failed: %w", err)
		}
		color.Green("✓ Authorized")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authorization status",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := store.GetToken()
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("Not authorized. Run 'pulse auth login' to start.")
			return nil
		}
		if err != nil {
			return err
		}

		color.Green("✓ Authorized")
		if token.UserID != "" {
			fmt.Printf("  user:    %s\n", token.UserID)
		}
		if token.Scope != "" {
			fmt.Printf("  scope:   %s\n", token.Scope)
		}
		fmt.Printf("  expires: %s\n", token.ExpiresAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := store.DeleteToken(); err != nil {
			return err
		}
		fmt.Println("Tokens removed.")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authExchangeCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}
