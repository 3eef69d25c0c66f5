// ABOUTME: MCP server exposing one user's wellness data to assistants.
// ABOUTME: Wraps the MCP server with the repository, biometrics service and acting user.
package mcp

import (
	"context"
	"errors"

	"github.com/harperreed/wellness/internal/biometrics"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with storage access.
type Server struct {
	mcpServer  *mcp.Server
	repo       storage.Repository
	biometrics *biometrics.Service
	userID     string
	clock      clock.Clock
}

// NewServer creates an MCP server acting as userID.
func NewServer(repo storage.Repository, svc *biometrics.Service, userID string, clk clock.Clock) (*Server, error) {
	if userID == "" {
		return nil, errors.New("mcp server needs a user id")
	}
	if clk == nil {
		clk = clock.Real{}
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "wellness",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer:  mcpServer,
		repo:       repo,
		biometrics: svc,
		userID:     userID,
		clock:      clk,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
