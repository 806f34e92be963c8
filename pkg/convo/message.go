package convo

import "time"

// Role identifies who produced a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn's worth of content from a single speaker. Valid
// defaults to true; a Session marks it false when the model turn it
// represents failed irrecoverably (a malformed function call, a stream
// that errored before completion), which is what curation uses to decide
// what to drop.
type Message struct {
	Role      Role
	Parts     []Part
	Timestamp time.Time
	Valid     bool
}

// NewUserMessage builds a valid user message from parts.
func NewUserMessage(ts time.Time, parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts, Timestamp: ts, Valid: true}
}

// NewModelMessage builds a valid model message from parts.
func NewModelMessage(ts time.Time, parts ...Part) Message {
	return Message{Role: RoleModel, Parts: parts, Timestamp: ts, Valid: true}
}

// Text concatenates every TextPart in the message, ignoring other part
// kinds. Useful for logging and for building the character-count heuristic
// a compression policy uses to size a history window.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Text
		}
	}
	return out
}

// IsEmpty reports whether the message has zero parts or every part has
// no observable content (empty text, no inline data) — the boundary case
// a model stream with no text and no function calls produces. Curation
// uses this to drop an empty model turn together with the user message
// that provoked it.
func (m Message) IsEmpty() bool {
	if len(m.Parts) == 0 {
		return true
	}
	for _, p := range m.Parts {
		switch part := p.(type) {
		case TextPart:
			if part.Text != "" {
				return false
			}
		case InlineDataPart:
			if len(part.Data) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// FunctionCalls returns every FunctionCallPart in the message, in order.
func (m Message) FunctionCalls() []FunctionCallPart {
	var calls []FunctionCallPart
	for _, p := range m.Parts {
		if c, ok := p.(FunctionCallPart); ok {
			calls = append(calls, c)
		}
	}
	return calls
}

// FunctionResponses returns every FunctionResponsePart in the message, in
// order.
func (m Message) FunctionResponses() []FunctionResponsePart {
	var resps []FunctionResponsePart
	for _, p := range m.Parts {
		if r, ok := p.(FunctionResponsePart); ok {
			resps = append(resps, r)
		}
	}
	return resps
}
