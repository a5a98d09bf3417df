package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/jot/internal/errors"
)

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("marshal args: %v", err))
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, errors.NewInvalidRequest(fmt.Sprintf("unmarshal args: %v", err))
	}
	return result, nil
}

// IDRequest is the argument of every tool that addresses one note.
type IDRequest struct {
	ID int64 `json:"id"`
}

func decodeID(req mcp.CallToolRequest) (int64, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return 0, err
	}
	if input.ID <= 0 {
		return 0, errors.NewInvalidRequest("id must be a positive integer")
	}
	return input.ID, nil
}
