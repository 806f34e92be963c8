package turn

import (
	"fmt"
	"strings"

	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

// The eight error kinds a Scheduler ever surfaces, each holding the
// underlying cause in Err and returning it from Unwrap so it stays
// inspectable via errors.As/errors.Is,
// matching the wrapError idiom in pkg/model/anthropic/errors.go.

type ValidationError struct {
	Tool string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("turn: validation failed for %s: %v", e.Tool, e.Err)
}
func (e *ValidationError) Unwrap() error { return e.Err }

type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("turn: tool %s not found: %v", e.Tool, e.Err)
}
func (e *ToolNotFoundError) Unwrap() error { return e.Err }

type ConfirmationCancelledError struct {
	Tool string
	Err  error
}

func (e *ConfirmationCancelledError) Error() string {
	return fmt.Sprintf("turn: confirmation declined for %s: %v", e.Tool, e.Err)
}
func (e *ConfirmationCancelledError) Unwrap() error { return e.Err }

type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("turn: execution failed for %s: %v", e.Tool, e.Err)
}
func (e *ExecutionError) Unwrap() error { return e.Err }

type TransientModelError struct {
	Model string
	Err   error
}

func (e *TransientModelError) Error() string {
	return fmt.Sprintf("turn: transient model error from %s: %v", e.Model, e.Err)
}
func (e *TransientModelError) Unwrap() error { return e.Err }

type AuthError struct {
	Model string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("turn: auth error from %s: %v", e.Model, e.Err)
}
func (e *AuthError) Unwrap() error { return e.Err }

type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("turn: cancelled: %v", e.Err) }
func (e *CancelledError) Unwrap() error { return e.Err }

type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("turn: internal error: %v", e.Err) }
func (e *InternalError) Unwrap() error { return e.Err }

// classifyModelError turns a raw model-transport failure (from
// Session.SendStream/GenerateAux) into the matching typed error. pkg/turn
// has no dependency on any concrete provider package, so unlike
// anthropic.isRetryableError this classifies by message substring alone
// rather than a typed status code.
func classifyModelError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(msg, "forbidden"), strings.Contains(msg, "invalid api key"), strings.Contains(msg, "invalid x-api-key"):
		return &AuthError{Err: err}
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"):
		return &TransientModelError{Err: err}
	case strings.Contains(msg, "context canceled"), strings.Contains(msg, "context.canceled"):
		return &CancelledError{Err: err}
	default:
		return &InternalError{Err: err}
	}
}

// errorForCall maps a terminal ToolCall's ErrorKind onto the matching
// typed error, the taxonomy a Scheduler reports for a failed tool call.
func errorForCall(call *toolcall.ToolCall) error {
	cause := fmt.Errorf("%s", call.ErrorMessage)
	switch call.ErrorKind {
	case toolcall.ErrorValidation:
		return &ValidationError{Tool: call.Name, Err: cause}
	case toolcall.ErrorToolNotFound:
		return &ToolNotFoundError{Tool: call.Name, Err: cause}
	case toolcall.ErrorConfirmationDenied:
		return &ConfirmationCancelledError{Tool: call.Name, Err: cause}
	case toolcall.ErrorExecution:
		return &ExecutionError{Tool: call.Name, Err: cause}
	case toolcall.ErrorCancelled:
		return &CancelledError{Err: cause}
	default:
		return &InternalError{Err: cause}
	}
}
