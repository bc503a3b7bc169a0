package tasks_tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/server"
)

// RegisterTasksTools registers every task tool with the MCP server
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext, opts ...Option) error {
	r := NewRegistry(sc, instrumentation.TransportMCP, opts...)
	for _, tool := range r.Tools() {
		s.AddTool(tool, r.mcpHandler(tool.Name))
	}
	return nil
}

func (r *Registry) mcpHandler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError("Argumentos inválidos"), nil
		}

		result, err := r.Call(ctx, name, raw)
		if err != nil {
			return mcp.NewToolResultError(apperrors.Message(err)), nil
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError("Error interno"), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
