package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType 标识事件语义，决定其路由到哪条物理通道。
type EventType string

const (
	EventContent          EventType = "content"
	EventThought          EventType = "thought"
	EventFunctionCall     EventType = "function_call"
	EventUsageMetadata    EventType = "usage_metadata"
	EventError            EventType = "error"
	EventUserCancelled    EventType = "user_cancelled"
	EventToolCallsUpdated EventType = "tool_calls_updated"
	EventChatCompressed   EventType = "chat_compressed"
	EventTurnComplete     EventType = "turn_complete"
)

// Channel 是事件总线的三条物理通道之一。
type Channel string

const (
	ChannelProgress Channel = "progress"
	ChannelControl  Channel = "control"
	ChannelMonitor  Channel = "monitor"
)

var errInvalidEvent = errors.New("event: missing type")

// Event 是投递给监听方的统一事件信封。
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Bookmark  *Bookmark `json:"bookmark,omitempty"`
}

// Validate reports whether evt carries the minimum required fields.
func (e Event) Validate() error {
	if e.Type == "" {
		return errInvalidEvent
	}
	return nil
}

// normalizeEvent fills in an ID and timestamp when the caller omitted them,
// so every event on the bus is uniquely addressable and orderable.
func normalizeEvent(evt Event) Event {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return evt
}

// channelForType routes a semantic event type to its physical channel.
// Progress carries streaming model output, control carries scheduler
// state/approval traffic, and monitor carries accounting/diagnostic data.
func channelForType(t EventType) (Channel, bool) {
	switch t {
	case EventContent, EventThought:
		return ChannelProgress, true
	case EventFunctionCall, EventToolCallsUpdated, EventUserCancelled, EventChatCompressed, EventTurnComplete:
		return ChannelControl, true
	case EventUsageMetadata, EventError:
		return ChannelMonitor, true
	default:
		return "", false
	}
}

// NewEvent constructs an Event ready for EventBus.Emit or direct forwarding
// to a per-turn listener channel.
func NewEvent(t EventType, sessionID string, data any) Event {
	return normalizeEvent(Event{Type: t, SessionID: sessionID, Data: data})
}
