package query

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestNewMCPAdapterRegistersTools(t *testing.T) {
	h := newTestHandler(t)
	a := NewMCPAdapter(h, "test")
	if a.mcpServer == nil {
		t.Fatal("expected NewMCPAdapter to build a non-nil MCP server")
	}
}

func TestGetArgsHandlesNilArguments(t *testing.T) {
	args := getArgs(mcp.CallToolRequest{})
	if len(args) != 0 {
		t.Errorf("getArgs on a request with nil Arguments = %v, want empty", args)
	}
}

func TestStringArgFallsBackToDefault(t *testing.T) {
	args := map[string]interface{}{"action": "pause"}
	if got := stringArg(args, "action", "status"); got != "pause" {
		t.Errorf("stringArg = %q, want %q", got, "pause")
	}
	if got := stringArg(args, "missing", "status"); got != "status" {
		t.Errorf("stringArg default = %q, want %q", got, "status")
	}
}

func TestBoolArgFallsBackToDefault(t *testing.T) {
	args := map[string]interface{}{"history": true}
	if got := boolArg(args, "history", false); got != true {
		t.Errorf("boolArg = %v, want true", got)
	}
	if got := boolArg(args, "missing", false); got != false {
		t.Errorf("boolArg default = %v, want false", got)
	}
}
