// ABOUTME: CLI commands triggering cloud syncs (wearable API and LibreLinkUp).
package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/cgm"
	"github.com/harperreed/pulse/internal/fitbit"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync recent days from the cloud",
	Long: `Sync recent days from the wearable cloud API.

Each data type keeps its own cursor; the sync covers the day after the
cursor through today, or the last 30 days on first run. A mid-range
failure keeps the progress made so far.

Run 'pulse auth login' first to authorize access.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := fitbit.NewClient(cmd.Context(), cfg, store, logger)
		if errors.Is(err, fitbit.ErrNotAuthenticated) {
			return errors.New("not authenticated; run 'pulse auth login' first")
		}
		if err != nil {
			return err
		}

		results := client.SyncAll(cmd.Context())

		types := make([]string, 0, len(results))
		for t := range results {
			types = append(types, t)
		}
		sort.Strings(types)

		for _, t := range types {
			status := results[t]
			switch {
			case strings.HasPrefix(status, "error"):
				color.Red("✗ %-22s %s", t, status)
			case status == "already_up_to_date":
				fmt.Printf("  %-22s %s\n", t, color.New(color.Faint).Sprint(status))
			default:
				color.Green("✓ %-22s %s", t, status)
			}
		}
		return nil
	},
}

var syncCGMCmd = &cobra.Command{
	Use:   "cgm",
	Short: "Pull glucose readings from LibreLinkUp",
	Long: `Pull glucose readings from LibreLinkUp.

Requires libre_email and libre_password in the configuration. Readings
already stored are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.LibreEmail == "" || cfg.LibrePassword == "" {
			return errors.New("libre_email and libre_password must be configured")
		}

		client := cgm.NewLinkUpClient(cfg, logger)
		result, err := client.Sync(cmd.Context(), store)
		if err != nil {
			return fmt.Errorf("cgm sync failed: %w", err)
		}

		color.Green("✓ Synced %d connection(s)", result.Connections)
		fmt.Printf("  %d readings fetched, %d new\n", result.Fetched, result.Imported)
		return nil
	},
}

func init() {
	syncCmd.AddCommand(syncCGMCmd)
	rootCmd.AddCommand(syncCmd)
}
