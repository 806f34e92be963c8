package toolcall

import (
	"context"
	"testing"

	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

type fakeTool struct {
	name      string
	confirm   *tool.ConfirmationDetails
	confirmed map[string]bool
	failWith  error
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake" }
func (f *fakeTool) Schema() *tool.JSONSchema    { return nil }
func (f *fakeTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &tool.ToolResult{Success: true, Output: "ok"}, nil
}

type confirmTool struct {
	fakeTool
}

func (f *confirmTool) ShouldConfirm(ctx context.Context, params map[string]interface{}) (*tool.ConfirmationDetails, error) {
	return &tool.ConfirmationDetails{Kind: tool.ConfirmExec, Title: "confirm me"}, nil
}

func TestScheduleUnknownToolErrors(t *testing.T) {
	reg := tool.NewRegistry()
	m := NewManager(reg)

	batch, err := m.Schedule(context.Background(), []streamdemux.FunctionCall{{ID: "c1", Name: "missing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Calls[0].State != StateError {
		t.Fatalf("expected error state, got %s", batch.Calls[0].State)
	}
	if batch.Calls[0].ErrorKind != ErrorToolNotFound {
		t.Fatalf("expected ErrorToolNotFound, got %s", batch.Calls[0].ErrorKind)
	}
}

func TestScheduleAndExecuteNoConfirmation(t *testing.T) {
	reg := tool.NewRegistry()
	_ = reg.Register(&fakeTool{name: "echo"})
	m := NewManager(reg)

	batch, err := m.Schedule(context.Background(), []streamdemux.FunctionCall{{ID: "c1", Name: "echo"}})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if batch.Calls[0].State != StateScheduled {
		t.Fatalf("expected scheduled, got %s", batch.Calls[0].State)
	}

	batch, err = m.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if batch.Calls[0].State != StateSuccess {
		t.Fatalf("expected success, got %s", batch.Calls[0].State)
	}
	responses := FunctionResponses(batch)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
}

func TestConfirmationFlow(t *testing.T) {
	reg := tool.NewRegistry()
	_ = reg.Register(&confirmTool{fakeTool: fakeTool{name: "risky"}})
	m := NewManager(reg)

	batch, err := m.Schedule(context.Background(), []streamdemux.FunctionCall{{ID: "c1", Name: "risky"}})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if batch.Calls[0].State != StateAwaitingApproval {
		t.Fatalf("expected awaiting_approval, got %s", batch.Calls[0].State)
	}

	if err := m.Confirm(context.Background(), "c1", Decision{ProceedOnce: true}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if batch.Calls[0].State != StateScheduled {
		t.Fatalf("expected scheduled after proceed-once, got %s", batch.Calls[0].State)
	}

	batch, err = m.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if batch.Calls[0].State != StateSuccess {
		t.Fatalf("expected success, got %s", batch.Calls[0].State)
	}
}

func TestProceedAlwaysRemembersTool(t *testing.T) {
	reg := tool.NewRegistry()
	_ = reg.Register(&confirmTool{fakeTool: fakeTool{name: "risky"}})
	m := NewManager(reg)

	batch, _ := m.Schedule(context.Background(), []streamdemux.FunctionCall{{ID: "c1", Name: "risky"}})
	_ = m.Confirm(context.Background(), "c1", Decision{ProceedAlways: ScopeTool})
	if _, err := m.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if batch.Calls[0].State != StateSuccess {
		t.Fatalf("expected success, got %s", batch.Calls[0].State)
	}

	// A fresh batch for the same tool should skip confirmation now.
	batch2, err := m.Schedule(context.Background(), []streamdemux.FunctionCall{{ID: "c2", Name: "risky"}})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if batch2.Calls[0].State != StateScheduled {
		t.Fatalf("expected scheduled due to remembered approval, got %s", batch2.Calls[0].State)
	}
}
