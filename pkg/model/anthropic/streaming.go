package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

// processStream consumes an Anthropic SSE stream and relays each event as a
// modelpkg.StreamChunk. A tool_use block arrives split over several
// events — content_block_start carries the id/name, content_block_delta
// carries partial JSON, content_block_stop finalizes it — so the partial
// JSON is accumulated here and also forwarded incrementally for callers
// that want to render it live.
func processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- modelpkg.StreamChunk, model string) {
	var toolCallID, toolName string
	var toolInput strings.Builder
	inTool := false
	inThinking := false
	emptyEvents := 0
	var inputTokens, outputTokens int

	emit := func(c modelpkg.StreamChunk) bool {
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for stream.Next() {
		event := stream.Current()
		processed := false

		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			if start.Message.Usage.InputTokens > 0 {
				inputTokens = int(start.Message.Usage.InputTokens)
			}
			if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkMessageStart}) {
				return
			}
			processed = true

		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			switch block.Type {
			case "thinking":
				inThinking = true
				processed = true
			case "tool_use":
				toolUse := block.AsToolUse()
				toolCallID = toolUse.ID
				toolName = toolUse.Name
				toolInput.Reset()
				inTool = true
				if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkToolCallStart, ToolCallID: toolCallID, ToolName: toolName}) {
					return
				}
				processed = true
			}

		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkTextDelta, TextDelta: delta.Text}) {
						return
					}
					processed = true
				}
			case "thinking_delta":
				if delta.Thinking != "" {
					if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkThoughtDelta, ThoughtDelta: delta.Thinking}) {
						return
					}
					processed = true
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					toolInput.WriteString(delta.PartialJSON)
					if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkToolCallDelta, ToolCallID: toolCallID, ToolInputDelta: delta.PartialJSON}) {
						return
					}
					processed = true
				}
			}

		case "content_block_stop":
			if inThinking {
				inThinking = false
				processed = true
			} else if inTool {
				inTool = false
				if !emit(modelpkg.StreamChunk{Type: modelpkg.ChunkToolCallStop, ToolCallID: toolCallID, ToolName: toolName, ToolInputDelta: toolInput.String()}) {
					return
				}
				processed = true
			}

		case "message_delta":
			mdelta := event.AsMessageDelta()
			if mdelta.Usage.OutputTokens > 0 {
				outputTokens = int(mdelta.Usage.OutputTokens)
			}
			processed = true

		case "message_stop":
			emit(modelpkg.StreamChunk{
				Type:    modelpkg.ChunkDone,
				Message: &modelpkg.Message{Role: "assistant"},
				Usage:   &modelpkg.Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
			})
			return

		case "error":
			emit(modelpkg.StreamChunk{Type: modelpkg.ChunkError, Err: wrapError(errStreamEvent, model)})
			return
		}

		if processed {
			emptyEvents = 0
		} else {
			emptyEvents++
			if emptyEvents >= maxEmptyStreamEvents {
				emit(modelpkg.StreamChunk{Type: modelpkg.ChunkError, Err: errMalformedStream})
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		emit(modelpkg.StreamChunk{Type: modelpkg.ChunkError, Err: wrapError(err, model)})
	}
}
