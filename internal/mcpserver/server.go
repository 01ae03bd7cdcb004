// Package mcpserver exposes the gateway commands as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gatewayctl/internal/commands"
	"gatewayctl/internal/notify"
	"gatewayctl/internal/supervisor"
	"gatewayctl/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const subsystem = "MCP"

// Tool names.
const (
	ToolStart  = "gateway_start"
	ToolStop   = "gateway_stop"
	ToolOpen   = "gateway_open"
	ToolUpdate = "gateway_update"
	ToolStatus = "gateway_status"
)

// Gateway is the subset of the command layer the tools call.
type Gateway interface {
	Start(ctx context.Context) error
	Stop() error
	Open() error
	UpdateBinary(ctx context.Context) error
	Status() commands.Status
}

// Server serves the gateway tools. Notifications raised while a tool runs are
// returned as the tool's text result.
type Server struct {
	gateway Gateway
	journal *notify.Recorder
	mcp     *server.MCPServer
}

// New creates the MCP server. journal must be the notifier the gateway
// commands report to.
func New(gateway Gateway, journal *notify.Recorder, version string) *Server {
	s := &Server{
		gateway: gateway,
		journal: journal,
		mcp: server.NewMCPServer(
			"gatewayctl",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.mcp.AddTools(s.tools()...)
	return s
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	logging.Info(subsystem, "Serving gateway tools on stdio")
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool(ToolStart,
				mcp.WithDescription("Start the Drizzle Gateway server and wait until it accepts connections"),
			),
			Handler: s.handleStart,
		},
		{
			Tool: mcp.NewTool(ToolStop,
				mcp.WithDescription("Stop the Drizzle Gateway server"),
			),
			Handler: s.handleStop,
		},
		{
			Tool: mcp.NewTool(ToolOpen,
				mcp.WithDescription("Open Drizzle Studio in the browser"),
			),
			Handler: s.handleOpen,
		},
		{
			Tool: mcp.NewTool(ToolUpdate,
				mcp.WithDescription("Delete the current gateway binary and download the latest version"),
				mcp.WithBoolean("confirm",
					mcp.Required(),
					mcp.Description("Must be true; the current binary is deleted before the download"),
				),
			),
			Handler: s.handleUpdate,
		},
		{
			Tool: mcp.NewTool(ToolStatus,
				mcp.WithDescription("Show whether the gateway is running, its port and the binary location"),
			),
			Handler: s.handleStatus,
		},
	}
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(func() error { return s.gateway.Start(ctx) })
}

func (s *Server) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(func() error {
		if err := s.gateway.Stop(); err != nil {
			return err
		}
		notify.Infof(s.journal, "Stop requested.")
		return nil
	})
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(func() error {
		if err := s.gateway.Open(); err != nil {
			return err
		}
		notify.Infof(s.journal, "Opened %s", s.gateway.Status().URL)
		return nil
	})
}

func (s *Server) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !request.GetBool("confirm", false) {
		return mcp.NewToolResultError(commands.UpdateConfirmation + " Call again with confirm set to true."), nil
	}
	return s.run(func() error { return s.gateway.UpdateBinary(ctx) })
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.gateway.Status(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// run calls fn and reports the notifications it produced.
func (s *Server) run(fn func() error) (*mcp.CallToolResult, error) {
	before := len(s.journal.Messages())
	err := fn()
	messages := s.journal.Messages()[before:]

	lines := make([]string, 0, len(messages))
	// A start while running only yields the informational notice.
	failed := err != nil && !errors.Is(err, supervisor.ErrAlreadyRunning)
	for _, m := range messages {
		lines = append(lines, m.Text)
		if m.Level == notify.LevelError {
			failed = true
		}
	}
	if err != nil && len(lines) == 0 {
		lines = append(lines, err.Error())
	}
	if len(lines) == 0 {
		lines = append(lines, "Done.")
	}

	text := strings.Join(lines, "\n")
	if failed {
		return mcp.NewToolResultError(text), nil
	}
	return mcp.NewToolResultText(text), nil
}
