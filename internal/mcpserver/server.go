package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all fraud tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("forsakenscan", "1.0.0")
	client := NewFraudClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolSubmitTransaction, h.HandleSubmitTransaction)
	s.AddTool(ToolListFrauds, h.HandleListFrauds)
	s.AddTool(ToolGetFraud, h.HandleGetFraud)
	s.AddTool(ToolListFlagged, h.HandleListFlagged)
	s.AddTool(ToolGetUserLimits, h.HandleGetUserLimits)
	s.AddTool(ToolSetUserLimits, h.HandleSetUserLimits)
	s.AddTool(ToolListLimitAttempts, h.HandleListLimitAttempts)

	return s
}
