package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teamtalk/talktome/internal/errors"
)

// decode unmarshals MCP request arguments into a typed struct.
// Malformed arguments come back as INVALID_REQUEST.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewInvalidRequest("invalid arguments")
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest("invalid arguments: " + err.Error())
	}
	return result, nil
}
