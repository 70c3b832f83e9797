// Package mcp exposes recall's search and retrieval operations as MCP tools
// over stdio. Each tool is a struct with its dependencies injected via the
// constructor, a Definition() returning the tool schema, and a Handle()
// processing one call. Tools run with the claims derived from the API key
// the server was started with.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}
