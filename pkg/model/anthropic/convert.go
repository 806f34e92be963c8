package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

// convertMessages turns the provider-agnostic Message slice into Anthropic
// MessageParam values. System-role messages are skipped here since the
// caller folds them into params.System instead.
func convertMessages(messages []modelpkg.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "system" {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		for _, tc := range msg.ToolCalls {
			content = append(content, anthropic.NewToolUseBlock(tc.ID, tc.Arguments, tc.Name))
		}
		if len(content) == 0 {
			content = append(content, anthropic.NewTextBlock(""))
		}

		if role == "assistant" || role == "model" {
			out = append(out, anthropic.NewAssistantMessage(content...))
		} else {
			out = append(out, anthropic.NewUserMessage(content...))
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("")))
	}
	return out, nil
}

// convertTools renders ToolDeclarations into Anthropic's tool union param,
// unmarshalling the raw JSON schema into the shape the SDK expects.
func convertTools(tools []modelpkg.ToolDeclaration) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(t.Schema) > 0 {
			if err := json.Unmarshal(t.Schema, &schema); err != nil {
				return nil, fmt.Errorf("anthropic: invalid schema for tool %s: %w", t.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// convertFromSDKMessage folds a completed anthropic.Message (the
// non-streaming response) into a modelpkg.Message.
func convertFromSDKMessage(msg *anthropic.Message) modelpkg.Message {
	out := modelpkg.Message{Role: "assistant"}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolUse := block.AsToolUse()
			var args map[string]any
			_ = json.Unmarshal(toolUse.Input, &args)
			out.ToolCalls = append(out.ToolCalls, modelpkg.ToolCall{
				ID:        toolUse.ID,
				Name:      toolUse.Name,
				Arguments: args,
			})
		}
	}
	out.Content = text.String()
	return out
}
