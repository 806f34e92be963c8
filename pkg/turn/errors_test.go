package turn

import (
	"errors"
	"testing"

	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

func TestErrorForCallMapsEveryKind(t *testing.T) {
	cases := map[toolcall.ErrorKind]error{
		toolcall.ErrorValidation:         &ValidationError{},
		toolcall.ErrorToolNotFound:       &ToolNotFoundError{},
		toolcall.ErrorConfirmationDenied: &ConfirmationCancelledError{},
		toolcall.ErrorExecution:          &ExecutionError{},
		toolcall.ErrorCancelled:          &CancelledError{},
		toolcall.ErrorKind("bogus"):      &InternalError{},
	}
	for kind, want := range cases {
		call := &toolcall.ToolCall{Name: "shell", ErrorKind: kind, ErrorMessage: "boom"}
		got := errorForCall(call)
		if want == nil {
			t.Fatalf("nil want for %s", kind)
		}
		switch want.(type) {
		case *ValidationError:
			var e *ValidationError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *ValidationError", kind, got)
			}
		case *ToolNotFoundError:
			var e *ToolNotFoundError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *ToolNotFoundError", kind, got)
			}
		case *ConfirmationCancelledError:
			var e *ConfirmationCancelledError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *ConfirmationCancelledError", kind, got)
			}
		case *ExecutionError:
			var e *ExecutionError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *ExecutionError", kind, got)
			}
		case *CancelledError:
			var e *CancelledError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *CancelledError", kind, got)
			}
		case *InternalError:
			var e *InternalError
			if !errors.As(got, &e) {
				t.Fatalf("kind %s: got %T, want *InternalError", kind, got)
			}
		}
	}
}

func TestErrorForCallUnwrapsCause(t *testing.T) {
	call := &toolcall.ToolCall{Name: "shell", ErrorKind: toolcall.ErrorExecution, ErrorMessage: "exit status 1"}
	err := errorForCall(call)
	if err.Error() == "" {
		t.Fatal("expected non-empty message")
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecutionError, got %T", err)
	}
	if execErr.Unwrap() == nil {
		t.Fatal("expected wrapped cause")
	}
}

func TestClassifyModelError(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"status 401 unauthorized", &AuthError{}},
		{"status 429 rate_limit_error", &TransientModelError{}},
		{"status 503 service unavailable", &TransientModelError{}},
		{"context canceled", &CancelledError{}},
		{"something unexpected happened", &InternalError{}},
	}
	for _, c := range cases {
		got := classifyModelError(errors.New(c.msg))
		switch c.want.(type) {
		case *AuthError:
			var e *AuthError
			if !errors.As(got, &e) {
				t.Fatalf("%q: got %T, want *AuthError", c.msg, got)
			}
		case *TransientModelError:
			var e *TransientModelError
			if !errors.As(got, &e) {
				t.Fatalf("%q: got %T, want *TransientModelError", c.msg, got)
			}
		case *CancelledError:
			var e *CancelledError
			if !errors.As(got, &e) {
				t.Fatalf("%q: got %T, want *CancelledError", c.msg, got)
			}
		case *InternalError:
			var e *InternalError
			if !errors.As(got, &e) {
				t.Fatalf("%q: got %T, want *InternalError", c.msg, got)
			}
		}
	}
}

func TestClassifyModelErrorNil(t *testing.T) {
	if classifyModelError(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}
