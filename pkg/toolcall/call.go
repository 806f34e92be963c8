package toolcall

import (
	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

// ErrorKind tags why a call ended in StateError or StateCancelled, per the
// error taxonomy: the scheduler surfaces each differently to the model and
// the user, but a tool call itself only needs to remember which applied.
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorValidation          ErrorKind = "validation"
	ErrorToolNotFound        ErrorKind = "tool_not_found"
	ErrorConfirmationDenied  ErrorKind = "confirmation_cancelled"
	ErrorExecution           ErrorKind = "execution"
	ErrorCancelled           ErrorKind = "cancelled"
)

// ToolCall is one model-requested (or client-initiated) invocation moving
// through the state machine described in state.go.
type ToolCall struct {
	ID                string
	Name              string
	Args              map[string]any
	ServerName        string
	IsClientInitiated bool

	State        State
	ErrorKind    ErrorKind
	ErrorMessage string

	Confirmation *tool.ConfirmationDetails
	IsModifying  bool
	LiveOutput   string

	Result *tool.ToolResult

	// ResponseSubmitted marks a client-initiated call whose terminal state
	// the scheduler has observed, without anything being sent back to the
	// model for it.
	ResponseSubmitted bool
}

// ToolCallBatch is the unit of exclusivity: schedule(batch) requires every
// prior batch to already be fully terminal.
type ToolCallBatch struct {
	Calls []*ToolCall
}

// Terminal reports whether every call in the batch has reached a terminal
// state.
func (b *ToolCallBatch) Terminal() bool {
	for _, c := range b.Calls {
		if !c.State.Terminal() {
			return false
		}
	}
	return true
}

// ReadyToExecute reports whether every call is scheduled or terminal, i.e.
// none remain in validating, awaiting_approval, or executing — the
// condition that flips a whole batch from scheduled to executing at once.
func (b *ToolCallBatch) ReadyToExecute() bool {
	any := false
	for _, c := range b.Calls {
		switch c.State {
		case StateValidating, StateAwaitingApproval, StateExecuting:
			return false
		case StateScheduled:
			any = true
		}
	}
	return any
}

// ByID returns the call with the given id, or nil.
func (b *ToolCallBatch) ByID(id string) *ToolCall {
	for _, c := range b.Calls {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Get looks up a registered call by id in a batch slice, used by callers
// holding only []*ToolCall (e.g. mid-construction).
func Get(calls []*ToolCall, id string) *ToolCall {
	for _, c := range calls {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// newFunctionResponsePart is a construction convenience kept here (rather
// than in convo) since only the manager's response-conversion rule needs
// to build these from a ToolCall.
func newFunctionResponsePart(id, name string, response map[string]any) convo.FunctionResponsePart {
	return convo.FunctionResponsePart{ID: id, Name: name, Response: response}
}
