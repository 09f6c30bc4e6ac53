// ABOUTME: CLI command running the HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/pulse/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server.

ENDPOINTS:

  GET  /api/<entity>        Date-ranged JSON (start/end, YYYY-MM-DD)
  POST /api/upload          Ingest an export archive (multipart "file")
  POST /api/sync            Incremental cloud sync
  POST /api/sync/cgm        Pull glucose readings from LibreLinkUp
  GET  /api/auth/login      Start the OAuth flow
  GET  /healthz             Liveness probe
  GET  /metrics             Prometheus metrics

The listen address comes from the addr config key (default :8080).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(cfg, store, logger)
		err := server.ListenAndServe(ctx)
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
