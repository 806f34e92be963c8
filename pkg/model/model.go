package model

import "context"

// ToolResult is the model-facing rendering of a completed tool call, fed
// back into the next request as part of a user-role message.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

// ToolDeclaration advertises one callable tool to the model.
type ToolDeclaration struct {
	Name        string
	Description string
	Schema      []byte // raw JSON schema
}

// Request is everything a Model needs to produce the next turn.
type Request struct {
	System  string
	Messages []Message
	Tools   []ToolDeclaration
}

// ChunkType discriminates the variants of StreamChunk.
type ChunkType string

const (
	ChunkMessageStart  ChunkType = "message_start"
	ChunkTextDelta     ChunkType = "text_delta"
	ChunkThoughtDelta  ChunkType = "thought_delta"
	ChunkToolCallStart ChunkType = "tool_call_start"
	ChunkToolCallDelta ChunkType = "tool_call_delta"
	ChunkToolCallStop  ChunkType = "tool_call_stop"
	ChunkDone          ChunkType = "done"
	ChunkError         ChunkType = "error"
)

// Usage reports token accounting for a completed turn.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamChunk is one incremental event off a streaming model call. A
// Demultiplexer (pkg/streamdemux) is what turns a channel of these into
// the richer StreamEvent union the Turn Scheduler consumes; Model itself
// stays a thin, provider-agnostic seam.
type StreamChunk struct {
	Type ChunkType

	TextDelta    string
	ThoughtDelta string

	ToolCallID      string
	ToolName        string
	ToolInputDelta  string // partial JSON accumulated across tool_call_delta chunks

	Message *Message // may be set on ChunkDone; the Anthropic stream sets only Role
	Usage   *Usage   // populated on ChunkDone when the provider reports usage

	Err error // populated on ChunkError
}

// Model is the minimal contract a provider must satisfy: a blocking call
// and a streaming call, both over the same Request shape.
type Model interface {
	Name() string
	Generate(ctx context.Context, req Request) (Message, error)
	Stream(ctx context.Context, req Request) (<-chan StreamChunk, error)
}
