package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the clone-detection tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all mimic tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mimic",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the clone-detection tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scan_clones",
		Description: describeScanClones(),
	}, handleScanClones)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "compare_files",
		Description: describeCompareFiles(),
	}, handleCompareFiles)
}
