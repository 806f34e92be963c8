package streamdemux

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

// Demux consumes chunks and returns a channel of typed StreamEvent. It
// closes the returned channel once chunks closes or ctx is cancelled,
// emitting exactly one UserCancelled in the cancellation case.
func Demux(ctx context.Context, chunks <-chan modelpkg.StreamChunk, now func() time.Time) <-chan StreamEvent {
	if now == nil {
		now = time.Now
	}
	out := make(chan StreamEvent)

	go func() {
		defer close(out)

		var thought strings.Builder
		var toolName string
		var toolCallID string

		flushThought := func() bool {
			if thought.Len() == 0 {
				return true
			}
			subject, description := parseThought(thought.String())
			thought.Reset()
			return emit(ctx, out, Thought{Subject: subject, Description: description})
		}

		for {
			select {
			case <-ctx.Done():
				_ = flushThought()
				emit(ctx, out, UserCancelled{})
				return
			case chunk, ok := <-chunks:
				if !ok {
					_ = flushThought()
					return
				}

				switch chunk.Type {
				case modelpkg.ChunkMessageStart:
					// No scheduler-facing signal; the batch is opened implicitly
					// by the first FunctionCall or Content event.

				case modelpkg.ChunkTextDelta:
					if !flushThought() {
						return
					}
					if !emit(ctx, out, Content{Text: chunk.TextDelta}) {
						return
					}

				case modelpkg.ChunkThoughtDelta:
					thought.WriteString(chunk.ThoughtDelta)

				case modelpkg.ChunkToolCallStart:
					if !flushThought() {
						return
					}
					toolName = chunk.ToolName
					toolCallID = chunk.ToolCallID

				case modelpkg.ChunkToolCallDelta:
					// Raw partial JSON is accumulated by the model layer and
					// delivered whole at ChunkToolCallStop; nothing to do here.

				case modelpkg.ChunkToolCallStop:
					if !flushThought() {
						return
					}
					id := chunk.ToolCallID
					if id == "" {
						id = toolCallID
					}
					if id == "" {
						id = synthesizeCallID(chunk.ToolName, now())
					}
					name := chunk.ToolName
					if name == "" {
						name = toolName
					}
					args := map[string]any{}
					if strings.TrimSpace(chunk.ToolInputDelta) != "" {
						_ = json.Unmarshal([]byte(chunk.ToolInputDelta), &args)
					}
					if !emit(ctx, out, FunctionCall{ID: id, Name: name, Args: args}) {
						return
					}

				case modelpkg.ChunkDone:
					if !flushThought() {
						return
					}
					if chunk.Usage != nil {
						if !emit(ctx, out, UsageMetadata{
							InputTokens:  chunk.Usage.InputTokens,
							OutputTokens: chunk.Usage.OutputTokens,
						}) {
							return
						}
					}
					return

				case modelpkg.ChunkError:
					_ = flushThought()
					message := "stream error"
					if chunk.Err != nil {
						message = chunk.Err.Error()
					}
					emit(ctx, out, Error{Message: message})
					return
				}
			}
		}
	}()

	return out
}

func emit(ctx context.Context, out chan<- StreamEvent, evt StreamEvent) bool {
	select {
	case out <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}
