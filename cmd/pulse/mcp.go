// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio-based MCP server for AI assistant integration.
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/importer"
	"github.com/harperreed/pulse/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant
integration. The server communicates via stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "pulse": {
        "command": "pulse",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  list_heart_rate_daily  Daily heart rate summaries for a date range
  list_sleep             Sleep sessions with stages and scores
  list_activity          Daily activity summaries
  list_exercises         Logged exercise sessions
  list_glucose           CGM glucose readings
  get_latest_glucose     Most recent glucose reading
  get_sync_status        Last-synced date per cloud data type
  import_archive         Ingest an export archive from a local path

AVAILABLE RESOURCES:

  pulse://today            Today's activity, sleep, and heart rate
  pulse://glucose/latest   Most recent glucose reading`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(store, importer.New(store, logger))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
