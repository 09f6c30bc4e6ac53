// ABOUTME: Root Cobra command for the pulse CLI.
// ABOUTME: Loads config and opens the store via PersistentPre/PostRunE.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/config"
	"github.com/harperreed/pulse/internal/storage"
)

var (
	cfg    *config.Config
	store  *storage.DB
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Personal biometrics store",
	Long: `Pulse ingests wearable and CGM data into a local SQL store.

DATA SOURCES:

  Export archive  Google Takeout / legacy export ZIPs (heart rate, sleep,
                  activity, exercises, HRV, SpO2, temperature, stress,
                  readiness, sleep scores, active zone minutes)
  Web API         Incremental cloud sync with per-data-type cursors
  CGM             LibreLinkUp polling and glucose CSV import

QUICK START:

  $ pulse import takeout.zip          # Ingest an export archive
  $ pulse auth login                  # Start the OAuth flow
  $ pulse sync                        # Pull recent days from the cloud
  $ pulse glucose import export.csv   # Import CGM readings
  $ pulse serve                       # Run the HTTP API

CONFIGURATION:

  Settings come from PULSE_ environment variables, or a YAML file named
  by PULSE_CONFIG. Keys: db_driver (sqlite|postgres), db_path, db_dsn,
  addr, log_level, fitbit_client_id, fitbit_client_secret,
  fitbit_redirect_uri, libre_email, libre_password, libre_region.

DATA STORAGE:

  SQLite by default (db_path, ~/.local/share/pulse/pulse.db). Set
  db_driver=postgres and db_dsn for a shared database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			logger.SetLevel(level)
		}

		store, err = storage.Open(cfg.DBDriver, cfg.DSN())
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
