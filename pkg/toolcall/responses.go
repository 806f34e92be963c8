package toolcall

import (
	"fmt"

	"github.com/ninetwolabs/agentrt/pkg/convo"
)

// toFunctionResponse converts a terminal call into the function-response
// part the scheduler appends to history. tool.ToolResult.Output is always
// a flat string here (the richer "list of parts"/nested-functionResponse/
// inlineData cases in spec.md's four-case rule do not arise against this
// package's ToolResult shape, which only ever carries a string summary),
// so only the string-success and error/cancelled branches apply.
func toFunctionResponse(call *ToolCall) convo.FunctionResponsePart {
	switch call.State {
	case StateSuccess:
		output := ""
		if call.Result != nil {
			output = call.Result.Output
		}
		return newFunctionResponsePart(call.ID, call.Name, map[string]any{"output": output})
	case StateCancelled:
		reason := call.ErrorMessage
		if reason == "" {
			reason = "user declined"
		}
		return newFunctionResponsePart(call.ID, call.Name, map[string]any{
			"error": fmt.Sprintf("[Operation Cancelled] Reason: %s", reason),
		})
	default: // StateError
		return newFunctionResponsePart(call.ID, call.Name, map[string]any{"error": call.ErrorMessage})
	}
}
