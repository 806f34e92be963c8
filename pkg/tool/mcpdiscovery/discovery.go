// Package mcpdiscovery adapts tools advertised by an MCP server (via
// pkg/mcp/adapter) into the pkg/tool.Tool contract, so the registry can
// schedule and execute them exactly like a built-in.
package mcpdiscovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ninetwolabs/agentrt/pkg/mcp/adapter"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

// mcpTool wraps one server-advertised tool. It always reports a
// ConfirmMCP confirmation, per spec §4.5: every MCP-originated call needs
// sign-off unless a proceed-always grant already covers its server or
// name, matching the trust boundary the teacher's approval queue already
// draws around anything not built in.
type mcpTool struct {
	client      *adapter.Client
	serverName  string
	name        string
	description string
	schema      *tool.JSONSchema
}

// Discover lists every tool a connected client advertises and wraps each
// as a tool.Tool tagged with serverName, for RegisterDiscovered/
// ReplaceDiscovered.
func Discover(ctx context.Context, serverName string, client *adapter.Client) ([]tool.Tool, error) {
	descriptors, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcpdiscovery: list tools on %s: %w", serverName, err)
	}

	tools := make([]tool.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, &mcpTool{
			client:      client,
			serverName:  serverName,
			name:        d.Name,
			description: d.Description,
			schema:      convertSchema(d.Schema),
		})
	}
	return tools, nil
}

func convertSchema(raw json.RawMessage) *tool.JSONSchema {
	if len(raw) == 0 {
		return nil
	}
	var schema tool.JSONSchema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}
	return &schema
}

func (t *mcpTool) Name() string             { return t.name }
func (t *mcpTool) Description() string      { return t.description }
func (t *mcpTool) Schema() *tool.JSONSchema { return t.schema }
func (t *mcpTool) ServerName() string       { return t.serverName }

// ShouldConfirm always requests sign-off: an MCP server is external code
// this process does not control, so every call is confirm-gated unless the
// caller has already granted a server- or tool-scoped proceed-always.
func (t *mcpTool) ShouldConfirm(ctx context.Context, params map[string]interface{}) (*tool.ConfirmationDetails, error) {
	return &tool.ConfirmationDetails{
		Kind:        tool.ConfirmMCP,
		Title:       fmt.Sprintf("Run MCP tool %q on %s?", t.name, t.serverName),
		ServerName:  t.serverName,
		ToolName:    t.name,
		DisplayName: t.name,
	}, nil
}

func (t *mcpTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	result, err := t.client.InvokeTool(ctx, t.name, params)
	if err != nil {
		return &tool.ToolResult{Success: false, Error: err, Output: err.Error()}, nil
	}
	output := string(result.Content)
	return &tool.ToolResult{
		Success:       !result.IsError,
		Output:        output,
		Data:          result.Content,
		ReturnDisplay: output,
	}, nil
}
