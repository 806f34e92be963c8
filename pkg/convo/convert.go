package convo

import modelpkg "github.com/ninetwolabs/agentrt/pkg/model"

// toModelMessages renders the curated convo history into the flat wire
// shape a Model implementation understands, folding FunctionCallPart into
// modelpkg.ToolCall and FunctionResponsePart into modelpkg.ToolResult on
// the message that carries them.
func toModelMessages(history []Message) []modelpkg.Message {
	out := make([]modelpkg.Message, 0, len(history))
	for _, msg := range history {
		mm := modelpkg.Message{Role: string(msg.Role)}
		for _, p := range msg.Parts {
			switch part := p.(type) {
			case TextPart:
				mm.Content += part.Text
			case FunctionCallPart:
				mm.ToolCalls = append(mm.ToolCalls, modelpkg.ToolCall{
					ID: part.ID, Name: part.Name, Arguments: part.Args,
				})
			case FunctionResponsePart:
				mm.ToolResults = append(mm.ToolResults, modelpkg.ToolResult{
					ToolCallID: part.ID,
					Name:       part.Name,
					Content:    responseText(part.Response),
					IsError:    isErrorResponse(part.Response),
				})
			}
		}
		out = append(out, mm)
	}
	return out
}

func responseText(response map[string]any) string {
	if response == nil {
		return ""
	}
	if v, ok := response["output"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := response["error"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func isErrorResponse(response map[string]any) bool {
	_, ok := response["error"]
	return ok
}
