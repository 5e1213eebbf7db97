// Package mcp exposes the elevator as MCP tools over stdio.
package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/clearlift/internal/control"
)

// Server wraps the MCP SDK server around one shared elevator.
type Server struct {
	mcpServer *mcpsdk.Server
	ctrl      *control.Controller
}

// New creates an MCP server whose tools act on ctrl.
func New(ctrl *control.Controller, version string) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("mcp: nil controller")
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{ctrl: ctrl}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "clearlift",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all elevator tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "elevator_press",
		Description: "Press a floor button as an agent. The call completes once the door decision is made; a denied agent is returned to G.",
	}, s.handlePress)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "elevator_check",
		Description: "Check whether a clearance may enter a floor without moving the elevator (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "elevator_status",
		Description: "Report the elevator position, press counters and every known agent's floor.",
	}, s.handleStatus)
}
