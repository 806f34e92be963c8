package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/ninetwolabs/agentrt/pkg/event"
	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

// fakeModel answers every Stream call with a fixed chunk sequence. Generate
// serves the scheduler's next-speaker check, which runs after every reply
// without tool calls; it always answers "user", so the turn ends there.
// Compression never triggers because TokenLimit is 0.
type fakeModel struct {
	chunks [][]modelpkg.StreamChunk
	calls  int
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Generate(ctx context.Context, req modelpkg.Request) (modelpkg.Message, error) {
	return modelpkg.Message{Role: "assistant", Content: `{"next_speaker":"user"}`}, nil
}

func (f *fakeModel) Stream(ctx context.Context, req modelpkg.Request) (<-chan modelpkg.StreamChunk, error) {
	idx := f.calls
	if idx >= len(f.chunks) {
		idx = len(f.chunks) - 1
	}
	f.calls++
	seq := f.chunks[idx]
	ch := make(chan modelpkg.StreamChunk, len(seq))
	for _, c := range seq {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func textReplyModel(text string) *fakeModel {
	return &fakeModel{chunks: [][]modelpkg.StreamChunk{{
		{Type: modelpkg.ChunkTextDelta, TextDelta: text},
		{Type: modelpkg.ChunkDone, Usage: &modelpkg.Usage{InputTokens: 3, OutputTokens: 5}},
	}}}
}

func toolCallModel(name string, args string) *fakeModel {
	return &fakeModel{chunks: [][]modelpkg.StreamChunk{
		{
			{Type: modelpkg.ChunkToolCallStart, ToolCallID: "call-1", ToolName: name},
			{Type: modelpkg.ChunkToolCallStop, ToolCallID: "call-1", ToolName: name, ToolInputDelta: args},
			{Type: modelpkg.ChunkDone},
		},
		{
			{Type: modelpkg.ChunkTextDelta, TextDelta: "done"},
			{Type: modelpkg.ChunkDone},
		},
	}}
}

func TestAgentRun(t *testing.T) {
	t.Run("default response streams model text", func(t *testing.T) {
		ag := newTestAgent(t, textReplyModel("hello there"))
		res, err := ag.Run(context.Background(), "  hi  ")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if res.StopReason != "complete" {
			t.Fatalf("stop reason = %s", res.StopReason)
		}
		if res.Output != "hello there" {
			t.Fatalf("output = %q", res.Output)
		}
		if res.Usage.TotalTokens != 8 {
			t.Fatalf("usage = %+v", res.Usage)
		}
	})

	t.Run("tool call executes registered tool", func(t *testing.T) {
		ag := newTestAgent(t, toolCallModel("echo", `{"msg":"ok"}`))
		stub := &mockTool{name: "echo", result: &tool.ToolResult{Success: true, Output: "pong"}}
		if err := ag.AddTool(stub); err != nil {
			t.Fatalf("add tool: %v", err)
		}
		res, err := ag.Run(context.Background(), "please echo")
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if stub.calls != 1 {
			t.Fatalf("tool executions = %d", stub.calls)
		}
		if len(res.ToolCalls) != 1 || res.ToolCalls[0].Name != "echo" {
			t.Fatalf("tool calls = %+v", res.ToolCalls)
		}
	})

	t.Run("nil context rejected", func(t *testing.T) {
		ag := newTestAgent(t, textReplyModel("x"))
		if _, err := ag.Run(nil, "hello"); err == nil || !strings.Contains(err.Error(), "context is nil") {
			t.Fatalf("expected context is nil error, got %v", err)
		}
	})

	t.Run("empty input rejected", func(t *testing.T) {
		ag := newTestAgent(t, textReplyModel("x"))
		if _, err := ag.Run(context.Background(), "   "); err == nil || !strings.Contains(err.Error(), "input is empty") {
			t.Fatalf("expected input is empty error, got %v", err)
		}
	})
}

func TestAgentRunStream(t *testing.T) {
	t.Run("successful stream emits content then completion", func(t *testing.T) {
		ag := newTestAgent(t, textReplyModel("hi"))
		ch, err := ag.RunStream(context.Background(), "hi")
		if err != nil {
			t.Fatalf("run stream failed: %v", err)
		}
		var events []event.Event
		for evt := range ch {
			events = append(events, evt)
		}
		if len(events) == 0 {
			t.Fatal("no events emitted")
		}
		if events[0].Type != event.EventContent {
			t.Fatalf("first event = %s", events[0].Type)
		}
		if last := events[len(events)-1]; last.Type != event.EventTurnComplete {
			t.Fatalf("last event = %s", last.Type)
		}
	})

	t.Run("nil context rejected", func(t *testing.T) {
		ag := newTestAgent(t, textReplyModel("x"))
		if _, err := ag.RunStream(nil, "hi"); err == nil || !strings.Contains(err.Error(), "context is nil") {
			t.Fatalf("expected context is nil error, got %v", err)
		}
	})
}

func TestAgentAddTool(t *testing.T) {
	tests := []struct {
		name        string
		tool        tool.Tool
		preRegister bool
		wantErr     string
	}{
		{name: "nil tool", tool: nil, wantErr: "tool is nil"},
		{name: "empty name", tool: &mockTool{name: ""}, wantErr: "tool name is empty"},
		{name: "duplicate name", tool: &mockTool{name: "dup"}, preRegister: true, wantErr: "already registered"},
		{name: "success registers tool", tool: &mockTool{name: "echo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ag := newTestAgent(t, textReplyModel("x"))
			if tt.preRegister {
				if err := ag.AddTool(tt.tool); err != nil {
					t.Fatalf("setup add failed: %v", err)
				}
			}
			err := ag.AddTool(tt.tool)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("want error containing %q got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("add tool failed: %v", err)
			}
		})
	}
}

func newTestAgent(t *testing.T, model modelpkg.Model) Agent {
	t.Helper()
	ag, err := New(Config{Name: "unit", DefaultContext: RunContext{SessionID: "test-session"}, Model: model})
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	return ag
}

type mockTool struct {
	name    string
	schema  *tool.JSONSchema
	result  *tool.ToolResult
	err     error
	calls   int
	lastCtx context.Context
	params  map[string]any
}

func (m *mockTool) Name() string             { return strings.TrimSpace(m.name) }
func (m *mockTool) Description() string      { return "mock" }
func (m *mockTool) Schema() *tool.JSONSchema { return m.schema }

func (m *mockTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	m.calls++
	m.lastCtx = ctx
	m.params = map[string]any{}
	for k, v := range params {
		m.params[k] = v
	}
	if m.result == nil {
		m.result = &tool.ToolResult{Success: true}
	}
	return m.result, m.err
}
