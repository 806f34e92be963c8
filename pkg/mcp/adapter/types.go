package adapter

import (
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDescriptor is the adapter's normalized view of an MCP-advertised tool.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ToolCallResult is the adapter's normalized view of a CallTool response.
type ToolCallResult struct {
	Content json.RawMessage
	IsError bool
}

// Error wraps an MCP JSON-RPC error with the fields callers care about.
type Error struct {
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface, including the nil-receiver case so
// callers holding a typed nil *Error don't crash formatting it.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Data) == 0 {
		return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("mcp error %d: %s (%s)", e.Code, e.Message, string(e.Data))
}

func toToolDescriptor(t *mcpsdk.Tool) ToolDescriptor {
	if t == nil {
		return ToolDescriptor{}
	}
	schema, err := json.Marshal(t.InputSchema)
	if err != nil {
		schema = nil
	}
	return ToolDescriptor{Name: t.Name, Description: t.Description, Schema: schema}
}

func toToolCallResult(r *mcpsdk.CallToolResult) *ToolCallResult {
	if r == nil {
		return &ToolCallResult{}
	}
	data, err := json.Marshal(r.Content)
	if err != nil {
		return &ToolCallResult{IsError: r.IsError}
	}
	return &ToolCallResult{Content: data, IsError: r.IsError}
}

// convertError normalizes MCP SDK errors (including ones buried inside a
// wrapped or joined error chain) into *Error. Non-wire errors are mapped to
// an internal-error code so callers can always type-assert to *Error.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var notFound mcpsdk.ResourceNotFoundError
	if errors.As(err, &notFound) {
		data, _ := json.Marshal(map[string]string{"uri": string(notFound)})
		return &Error{Code: -32002, Message: fmt.Sprintf("resource not found: %s", string(notFound)), Data: data}
	}

	var wire *mcpsdk.WireError
	if errors.As(err, &wire) {
		return &Error{Code: int(wire.Code), Message: wire.Message, Data: wire.Data}
	}

	return &Error{Code: -32603, Message: err.Error()}
}
