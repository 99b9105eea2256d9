package toolserver

import (
	"context"
	"errors"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"miladyos/pkg/logging"
)

// Server is the MCP stdio endpoint. It collects the tools of the
// registered providers at startup and serves them until the context
// ends or stdin closes.
type Server struct {
	name    string
	version string
}

// NewServer creates a tool server identifying itself with the given
// version during the MCP handshake.
func NewServer(version string) *Server {
	return &Server{
		name:    "miladyos",
		version: version,
	}
}

// Run serves MCP on the standard streams. It blocks until the context
// is canceled or the client closes stdin.
func (s *Server) Run(ctx context.Context) error {
	tools := buildTools(collectProviders())
	if len(tools) == 0 {
		return errors.New("no tool providers registered")
	}

	srv := mcpserver.NewMCPServer(
		s.name,
		s.version,
		mcpserver.WithToolCapabilities(false),
	)
	srv.AddTools(tools...)

	logging.Info("ToolServer", "Serving %d tools on stdio", len(tools))

	stdio := mcpserver.NewStdioServer(srv)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info("ToolServer", "Stdio transport closed")
	return nil
}
