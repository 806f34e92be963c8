package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/event"
	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

const continuationQuery = "Please continue."

// ConfirmationRequester is asked to resolve every call sitting in
// StateAwaitingApproval. A CLI implementation blocks on stdin; a headless
// implementation might apply a fixed policy.
type ConfirmationRequester interface {
	RequestConfirmation(ctx context.Context, call *toolcall.ToolCall) (toolcall.Decision, error)
}

// Scheduler drives one Session's turns through model streaming, tool
// scheduling, and the continuation loop described in spec §4.6.
type Scheduler struct {
	session     *convo.Session
	tools       *toolcall.Manager
	commands    CommandProcessor
	confirm     ConfirmationRequester
	checkpoint  CheckpointSnapshotter
	memorySignal MemoryRefreshSignaler
	sessionID   string

	listeners []func(event.Event)
	now       func() time.Time
	log       zerolog.Logger
	maxTurns  int
}

// NewScheduler wires a Scheduler around session and tools. commands and
// confirm may be nil, defaulting to a passthrough processor and an
// always-cancel requester respectively.
func NewScheduler(session *convo.Session, tools *toolcall.Manager) *Scheduler {
	return &Scheduler{
		session:      session,
		tools:        tools,
		commands:     PassthroughCommandProcessor{},
		checkpoint:   noopCheckpointer{},
		memorySignal: noopSignaler{},
		now:          time.Now,
		log:          zerolog.Nop(),
		maxTurns:     defaultMaxTurns,
	}
}

// SetMaxTurns overrides the per-turn continuation budget every Submit call
// opens a Context with, matching RunnerConfig.MaxTurns.
func (s *Scheduler) SetMaxTurns(maxTurns int) {
	if maxTurns > 0 {
		s.maxTurns = maxTurns
	}
}

// ApplyRunnerConfig wires a RunnerConfig's knobs onto the Scheduler's own
// max-turns budget and the underlying Manager's approval mode. It does not
// touch the session's compression threshold or the checkpoint directory —
// those are session/store-level concerns the caller wires directly, since
// a Scheduler is not the owner of either.
func (s *Scheduler) ApplyRunnerConfig(cfg RunnerConfig) {
	s.SetMaxTurns(cfg.MaxTurns)
	s.tools.SetMode(cfg.ApprovalMode)
}

// SetLogger attaches a structured logger tracing turn-loop progress
// (batches scheduled, checkpoints taken, next-speaker checks). Defaults to
// disabled, the same opt-in shape as convo.Session.SetLogger.
func (s *Scheduler) SetLogger(logger zerolog.Logger) { s.log = logger }

// SetCommandProcessor overrides the slash-command delegate.
func (s *Scheduler) SetCommandProcessor(p CommandProcessor) { s.commands = p }

// SetConfirmationRequester overrides the approval collaborator.
func (s *Scheduler) SetConfirmationRequester(r ConfirmationRequester) { s.confirm = r }

// SetCheckpointSnapshotter overrides the restorable-tool-call snapshot hook.
func (s *Scheduler) SetCheckpointSnapshotter(c CheckpointSnapshotter) { s.checkpoint = c }

// SetMemoryRefreshSignaler overrides the save_memory completion hook.
func (s *Scheduler) SetMemoryRefreshSignaler(sig MemoryRefreshSignaler) { s.memorySignal = sig }

// OnUpdate registers a listener invoked for every event the scheduler
// forwards during a turn, in observed order.
func (s *Scheduler) OnUpdate(fn func(event.Event)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Scheduler) emit(t event.EventType, data any) {
	evt := event.NewEvent(t, s.sessionID, data)
	for _, l := range s.listeners {
		l(evt)
	}
}

var atPathPattern = regexp.MustCompile(`@([^\s]+)`)

// expandAtReferences replaces every "@path" token with the referenced
// file's content, inlined as a fenced block, per spec §4.6's at-command
// expansion step. A path that cannot be read is left as literal text
// rather than failing the whole turn.
func expandAtReferences(query string) string {
	return atPathPattern.ReplaceAllStringFunc(query, func(token string) string {
		path := strings.TrimPrefix(token, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return token
		}
		return fmt.Sprintf("%s\n```\n%s\n```", token, string(data))
	})
}

// Submit runs one full turn (including any continuation loop) for
// userQuery, blocking until the turn terminates.
func (s *Scheduler) Submit(ctx context.Context, userQuery string) error {
	// 1. Dispatch.
	trimmed := strings.TrimSpace(userQuery)
	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "?") {
		result, err := s.commands.Process(ctx, trimmed)
		if err != nil {
			return fmt.Errorf("turn: command processor: %w", err)
		}
		if result.Handled {
			return nil
		}
		if result.ScheduleTool {
			return s.runClientInitiated(ctx, result.ToolName, result.ToolArgs)
		}
		// Passthrough falls through to ordinary model input below.
	}

	expanded := expandAtReferences(trimmed)
	s.session.AppendUser(convo.NewUserMessage(s.now(), convo.TextPart{Text: expanded}))

	// 2. Compress.
	if snap, err := s.session.TryCompress(ctx, false); err == nil && snap != nil {
		s.emit(event.EventChatCompressed, snap)
	}

	// 3. Open a turn.
	tc := NewContext(s.maxTurns)

	return s.loop(ctx, tc)
}

func (s *Scheduler) runClientInitiated(ctx context.Context, name string, args map[string]any) error {
	id := fmt.Sprintf("client-%d", s.now().UnixMilli())
	batch, err := s.tools.ScheduleClientInitiated(ctx, id, name, args)
	if err != nil {
		return err
	}
	if err := s.driveToTerminal(ctx, batch); err != nil {
		return err
	}
	for _, call := range batch.Calls {
		call.ResponseSubmitted = true
	}
	return nil
}

// loop implements steps 4-8 of spec §4.6.
func (s *Scheduler) loop(ctx context.Context, tc *Context) error {
	for {
		if ctx.Err() != nil {
			s.emit(event.EventUserCancelled, nil)
			return nil
		}

		events, err := s.session.SendStream(ctx)
		if err != nil {
			s.emit(event.EventError, classifyModelError(err).Error())
			return nil
		}

		var calls []streamdemux.FunctionCall
		cancelled := false
		streamErr := false
		for evt := range events {
			switch e := evt.(type) {
			case streamdemux.Content:
				s.emit(event.EventContent, e.Text)
			case streamdemux.Thought:
				s.emit(event.EventThought, e)
			case streamdemux.FunctionCall:
				calls = append(calls, e)
			case streamdemux.UsageMetadata:
				tc.lastUsage = &e
				s.emit(event.EventUsageMetadata, e)
			case streamdemux.Error:
				s.emit(event.EventError, classifyModelError(fmt.Errorf("%s", e.Message)).Error())
				streamErr = true
			case streamdemux.UserCancelled:
				s.emit(event.EventUserCancelled, nil)
				cancelled = true
			}
		}
		if streamErr {
			return nil
		}
		if cancelled {
			return nil
		}

		if len(calls) == 0 {
			cont, err := s.checkNextSpeaker(ctx)
			if err != nil || !cont {
				s.emit(event.EventTurnComplete, tc.lastUsage)
				return nil
			}
			s.session.AppendUser(convo.NewUserMessage(s.now(), convo.TextPart{Text: continuationQuery}))
			if !tc.Decrement() {
				s.log.Debug().Int("max_turns", tc.MaxTurns).Msg("turn: budget exhausted")
				s.emit(event.EventUsageMetadata, tc.lastUsage)
				return nil
			}
			continue
		}

		// 5. Schedule tool batch.
		s.log.Debug().Int("calls", len(calls)).Msg("turn: scheduling tool batch")
		batch, err := s.tools.Schedule(ctx, calls)
		if err != nil {
			s.emit(event.EventError, (&InternalError{Err: err}).Error())
			return nil
		}
		for _, call := range batch.Calls {
			if toolcall.IsRestorable(call.Name) && call.State == toolcall.StateAwaitingApproval {
				commit, path, err := s.checkpoint.Snapshot(ctx, call.Name, call.Args)
				if err == nil {
					s.emit(event.EventToolCallsUpdated, map[string]string{"commit": commit, "path": path})
				}
			}
		}

		if err := s.driveToTerminal(ctx, batch); err != nil {
			s.emit(event.EventError, (&InternalError{Err: err}).Error())
			return nil
		}

		for _, call := range batch.Calls {
			if call.State == toolcall.StateSuccess && toolcall.IsMemoryTool(call.Name) {
				s.memorySignal.SignalMemoryRefresh(ctx, call.ID)
			}
			if call.State == toolcall.StateError || call.State == toolcall.StateCancelled {
				s.emit(event.EventError, errorForCall(call).Error())
			}
		}

		// 6. Drive to terminal — outcome handling.
		if toolcall.AllModelInitiatedCancelled(batch) {
			parts := toolcall.FunctionResponses(batch)
			s.session.AppendUser(convo.Message{Parts: parts, Timestamp: s.now(), Valid: true})
			return nil
		}

		parts := toolcall.FunctionResponses(batch)
		s.session.AppendUser(convo.Message{Parts: parts, Timestamp: s.now(), Valid: true})
		if !tc.Decrement() {
			s.emit(event.EventUsageMetadata, tc.lastUsage)
			return nil
		}
	}
}

// driveToTerminal resolves every awaiting_approval call via the
// confirmation collaborator and then executes the batch, repeating until
// every call is terminal.
func (s *Scheduler) driveToTerminal(ctx context.Context, batch *toolcall.ToolCallBatch) error {
	for !batch.Terminal() {
		for _, call := range batch.Calls {
			if call.State != toolcall.StateAwaitingApproval {
				continue
			}
			decision, err := s.requestConfirmation(ctx, call)
			if err != nil {
				return err
			}
			if err := s.tools.Confirm(ctx, call.ID, decision); err != nil {
				return err
			}
			s.emit(event.EventToolCallsUpdated, call)
		}
		if _, err := s.tools.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) requestConfirmation(ctx context.Context, call *toolcall.ToolCall) (toolcall.Decision, error) {
	if s.confirm == nil {
		return toolcall.Decision{Cancel: true}, nil
	}
	return s.confirm.RequestConfirmation(ctx, call)
}

const nextSpeakerPrompt = `Analyze only the content and structure of your immediately preceding response. Based strictly on that response, determine who should logically speak next: the 'user' or the 'model' (you).
Respond only in JSON format: {"reasoning": "...", "next_speaker": "user" | "model"}`

// checkNextSpeaker implements spec §4.6 step 7: deterministic shortcuts
// first, then an auxiliary model call as a last resort.
func (s *Scheduler) checkNextSpeaker(ctx context.Context) (bool, error) {
	history := s.session.GetHistory(false)
	if len(history) == 0 {
		return false, nil
	}
	last := history[len(history)-1]
	if last.Role != convo.RoleModel {
		if len(last.FunctionResponses()) > 0 {
			return true, nil
		}
		return false, nil
	}
	if last.IsEmpty() {
		s.session.InsertEmptyTextIntoLastModel()
		return true, nil
	}

	raw, err := s.session.GenerateAux(ctx, nextSpeakerPrompt)
	if err != nil {
		return false, nil
	}
	var parsed struct {
		NextSpeaker string `json:"next_speaker"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return false, nil
	}
	return parsed.NextSpeaker == "model", nil
}
