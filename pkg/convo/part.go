// Package convo implements the conversation-level data model (messages,
// content parts, and the comprehensive/curated dual history view a Chat
// Session exposes to the Turn Scheduler) plus the Session type that owns
// sending a request to the model and folding the response back into
// history.
package convo

// Part is a single piece of message content. It is a closed sum type: the
// only implementations are the ones in this file, each carrying an
// unexported marker method so external packages cannot manufacture new
// variants and every switch over Part stays exhaustive.
type Part interface {
	isPart()
}

// TextPart is plain assistant or user text.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ThoughtPart is a model "thinking" segment. Subject/Description come from
// parsing the `**subject** description` convention the model uses for
// thought summaries; Raw preserves the untouched text when parsing fails.
type ThoughtPart struct {
	Subject     string
	Description string
	Raw         string
}

func (ThoughtPart) isPart() {}

// FunctionCallPart is a model request to invoke a tool.
type FunctionCallPart struct {
	ID   string
	Name string
	Args map[string]any
}

func (FunctionCallPart) isPart() {}

// FunctionResponsePart carries a tool's result back to the model.
type FunctionResponsePart struct {
	ID       string
	Name     string
	Response map[string]any
}

func (FunctionResponsePart) isPart() {}

// InlineDataPart embeds raw bytes (an image, a small file) directly in the
// conversation.
type InlineDataPart struct {
	MimeType string
	Data     []byte
}

func (InlineDataPart) isPart() {}

// FileDataPart references external file content by URI rather than
// inlining bytes.
type FileDataPart struct {
	MimeType string
	URI      string
}

func (FileDataPart) isPart() {}
