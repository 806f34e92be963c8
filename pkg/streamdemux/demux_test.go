package streamdemux

import (
	"context"
	"testing"
	"time"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func collect(t *testing.T, events <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	for evt := range events {
		out = append(out, evt)
	}
	return out
}

func TestDemuxTextAndDone(t *testing.T) {
	chunks := make(chan modelpkg.StreamChunk, 4)
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkMessageStart}
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkTextDelta, TextDelta: "hi"}
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkDone, Usage: &modelpkg.Usage{InputTokens: 3, OutputTokens: 5}}
	close(chunks)

	events := collect(t, Demux(context.Background(), chunks, fixedNow))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %#v", len(events), events)
	}
	content, ok := events[0].(Content)
	if !ok || content.Text != "hi" {
		t.Fatalf("expected Content{hi}, got %#v", events[0])
	}
	usage, ok := events[1].(UsageMetadata)
	if !ok || usage.InputTokens != 3 || usage.OutputTokens != 5 {
		t.Fatalf("expected UsageMetadata, got %#v", events[1])
	}
}

func TestDemuxThoughtParsing(t *testing.T) {
	chunks := make(chan modelpkg.StreamChunk, 4)
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkThoughtDelta, ThoughtDelta: "**Plan** "}
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkThoughtDelta, ThoughtDelta: "look at the file first"}
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkTextDelta, TextDelta: "ok"}
	close(chunks)

	events := collect(t, Demux(context.Background(), chunks, fixedNow))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %#v", len(events), events)
	}
	thought, ok := events[0].(Thought)
	if !ok {
		t.Fatalf("expected Thought, got %#v", events[0])
	}
	if thought.Subject != "Plan" || thought.Description != "look at the file first" {
		t.Fatalf("unexpected thought parse: %#v", thought)
	}
}

func TestDemuxFunctionCallSynthesizesID(t *testing.T) {
	chunks := make(chan modelpkg.StreamChunk, 4)
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkToolCallStart, ToolName: "run_shell_command"}
	chunks <- modelpkg.StreamChunk{Type: modelpkg.ChunkToolCallStop, ToolName: "run_shell_command", ToolInputDelta: `{"command":"ls"}`}
	close(chunks)

	events := collect(t, Demux(context.Background(), chunks, fixedNow))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %#v", len(events), events)
	}
	call, ok := events[0].(FunctionCall)
	if !ok {
		t.Fatalf("expected FunctionCall, got %#v", events[0])
	}
	if call.Name != "run_shell_command" || call.Args["command"] != "ls" {
		t.Fatalf("unexpected call: %#v", call)
	}
	if call.ID == "" {
		t.Fatalf("expected synthesized call id")
	}
}

func TestDemuxCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan modelpkg.StreamChunk)
	cancel()

	events := collect(t, Demux(ctx, chunks, fixedNow))
	if len(events) != 1 {
		t.Fatalf("expected exactly one event on cancellation, got %d", len(events))
	}
	if _, ok := events[0].(UserCancelled); !ok {
		t.Fatalf("expected UserCancelled, got %#v", events[0])
	}
}
