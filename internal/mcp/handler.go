package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Envelope is the uniform body of every tool result.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Status  int         `json:"status,omitempty"`
}

// successJSON wraps data in a success envelope and returns it as a tool
// result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(Envelope{Success: true, Data: data}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult returns a tool-level error. These are visible to the model and
// do not terminate the MCP session.
func errorResult(kind, message string, status int) *mcp.CallToolResult {
	b, _ := json.Marshal(Envelope{Error: kind, Message: message, Status: status})
	return mcp.NewToolResultError(string(b))
}
