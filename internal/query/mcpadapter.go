package query

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPAdapter exposes Handler's logical operations as MCP tools over
// stdio — an additional front door onto the same Handler the line
// protocol in protocol.go serves, not a replacement for it.
type MCPAdapter struct {
	mcpServer *server.MCPServer
}

// NewMCPAdapter builds an MCPAdapter dispatching to handler.
func NewMCPAdapter(handler *Handler, version string) *MCPAdapter {
	s := server.NewMCPServer("wades", version, server.WithLogging())
	registerTools(s, handler)
	return &MCPAdapter{mcpServer: s}
}

// Serve runs the adapter in stdio mode, blocking until ctx is canceled
// or the input stream closes.
func (a *MCPAdapter) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdioServer := server.NewStdioServer(a.mcpServer)
	return stdioServer.Listen(ctx, in, out)
}

func registerTools(s *server.MCPServer, handler *Handler) {
	modelledTool := mcp.NewTool("list_modelled_apps",
		mcp.WithDescription("List every application WADES currently has a behavioral profile for."),
	)
	s.AddTool(modelledTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(handler.ModelledApps())
	})

	abnormalTool := mcp.NewTool("list_abnormal_apps",
		mcp.WithDescription("List applications flagged anomalous in the most recent detection cycle, with risk level and abnormal attributes."),
		mcp.WithBoolean("history",
			mcp.Description("Include the full anomaly log with cycle-over-cycle diffs instead of just the latest cycle."),
			mcp.DefaultBool(false),
		),
	)
	s.AddTool(abnormalTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := getArgs(req)
		if boolArg(args, "history", false) {
			history, err := handler.AbnormalAppsHistory()
			if err != nil {
				return errResult(err.Error()), nil
			}
			return jsonResult(history)
		}
		return jsonResult(handler.AbnormalApps())
	})

	controlTool := mcp.NewTool("modeller_control",
		mcp.WithDescription("Pause, resume, or check the status of WADES's sampling/detection cadence."),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: pause, continue, status."),
			mcp.Enum("pause", "continue", "status"),
		),
	)
	s.AddTool(controlTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := getArgs(req)
		switch stringArg(args, "action", "status") {
		case "pause":
			handler.Pause()
			return jsonResult(map[string]string{"result": "paused"})
		case "continue":
			handler.Continue()
			return jsonResult(map[string]string{"result": "continuing"})
		default:
			return jsonResult(handler.Status())
		}
	})
}

func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

func boolArg(args map[string]interface{}, key string, defaultVal bool) bool {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	b, ok := val.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: msg}},
	}
}
