// ABOUTME: MCP server setup for the biometrics store.
// ABOUTME: Wraps the MCP server with storage access over stdio transport.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pulse/internal/importer"
	"github.com/harperreed/pulse/internal/storage"
)

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer *mcp.Server
	store     *storage.DB
	importer  *importer.Importer
}

// NewServer creates an MCP server backed by the given store.
func NewServer(store *storage.DB, imp *importer.Importer) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pulse",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     store,
		importer:  imp,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
