package toolcall

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
	"github.com/ninetwolabs/agentrt/pkg/tool"
)

// restorable names the tools whose awaiting_approval transition triggers a
// checkpoint snapshot (spec §4.6) before the scheduler proceeds.
var restorable = map[string]bool{"replace": true, "write_file": true}

// IsRestorable reports whether name is one of the checkpoint-eligible tools.
func IsRestorable(name string) bool { return restorable[name] }

// IsMemoryTool reports whether name is the save_memory tool, whose success
// triggers the memory-refresh signal named in spec §4.1/§4.6.
func IsMemoryTool(name string) bool { return name == "save_memory" }

// Decision is what the confirmation collaborator (CLI, UI) feeds back for
// a call sitting in StateAwaitingApproval.
type Decision struct {
	ProceedOnce   bool
	ProceedAlways ProceedScope // zero value means "not a proceed-always decision"
	Cancel        bool
	// ModifiedArgs, when non-nil, replaces Args and keeps the call in
	// StateAwaitingApproval with a refreshed confirmation/diff.
	ModifiedArgs map[string]any
}

// Manager owns the one in-flight batch for a session and drives it through
// the state machine in state.go, enforcing batch exclusivity (schedule
// fails while the previous batch is not yet terminal).
type Manager struct {
	mu       sync.Mutex
	registry *tool.Registry
	mode     Mode
	approval *approvalMemory
	current  *ToolCallBatch
	log      zerolog.Logger
}

// NewManager constructs a Manager bound to registry, starting in
// ModeDefault.
func NewManager(registry *tool.Registry) *Manager {
	return &Manager{registry: registry, mode: ModeDefault, approval: newApprovalMemory(), log: zerolog.Nop()}
}

// SetLogger attaches a structured logger tracing call-state transitions.
// Defaults to disabled, the same opt-in shape as convo.Session.SetLogger.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = logger
}

// SetMode changes the global approval posture.
func (m *Manager) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// Schedule classifies a freshly-received batch of model FunctionCall
// events, transitioning each into scheduled, awaiting_approval, or error.
// It returns an error if a prior batch is not yet terminal.
func (m *Manager) Schedule(ctx context.Context, calls []streamdemux.FunctionCall) (*ToolCallBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Terminal() {
		return nil, fmt.Errorf("toolcall: previous batch is still in flight")
	}

	batch := &ToolCallBatch{Calls: make([]*ToolCall, 0, len(calls))}
	for _, fc := range calls {
		call := &ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args, State: StateValidating}
		m.classify(ctx, call)
		batch.Calls = append(batch.Calls, call)
	}
	m.current = batch
	return batch, nil
}

// ScheduleClientInitiated synthesizes a single isClientInitiated call (the
// dispatch step's `{scheduleTool}` outcome from a slash command) and
// classifies it the same way a model-issued call would be.
func (m *Manager) ScheduleClientInitiated(ctx context.Context, id, name string, args map[string]any) (*ToolCallBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && !m.current.Terminal() {
		return nil, fmt.Errorf("toolcall: previous batch is still in flight")
	}
	call := &ToolCall{ID: id, Name: name, Args: args, State: StateValidating, IsClientInitiated: true}
	m.classify(ctx, call)
	batch := &ToolCallBatch{Calls: []*ToolCall{call}}
	m.current = batch
	return batch, nil
}

// classify must be called with m.mu held.
func (m *Manager) classify(ctx context.Context, call *ToolCall) {
	t, err := m.registry.Get(call.Name)
	if err != nil {
		call.State = StateError
		call.ErrorKind = ErrorToolNotFound
		call.ErrorMessage = err.Error()
		return
	}

	if schema := t.Schema(); schema != nil {
		if err := (tool.DefaultValidator{}).Validate(call.Args, schema); err != nil {
			call.State = StateError
			call.ErrorKind = ErrorValidation
			call.ErrorMessage = err.Error()
			return
		}
	}

	confirmable, ok := t.(tool.Confirmable)
	if !ok {
		call.State = StateScheduled
		return
	}
	details, err := confirmable.ShouldConfirm(ctx, call.Args)
	if err != nil {
		call.State = StateError
		call.ErrorKind = ErrorValidation
		call.ErrorMessage = err.Error()
		return
	}
	if details == nil {
		call.State = StateScheduled
		return
	}
	call.ServerName = details.ServerName

	if m.mode == ModeYOLO {
		call.State = StateScheduled
		return
	}
	if m.mode == ModeAutoEdit && details.Kind == tool.ConfirmEdit {
		call.State = StateScheduled
		return
	}
	if m.approval.satisfied(call) {
		call.State = StateScheduled
		return
	}

	call.Confirmation = details
	call.State = StateAwaitingApproval
}

// Confirm applies a user decision to a call currently in
// StateAwaitingApproval.
func (m *Manager) Confirm(ctx context.Context, callID string, decision Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return fmt.Errorf("toolcall: no batch in flight")
	}
	call := m.current.ByID(callID)
	if call == nil {
		return fmt.Errorf("toolcall: call %s not found", callID)
	}
	if call.State != StateAwaitingApproval {
		return fmt.Errorf("toolcall: call %s is not awaiting approval", callID)
	}

	switch {
	case decision.Cancel:
		call.State = StateCancelled
		call.ErrorKind = ErrorConfirmationDenied
		call.ErrorMessage = "user declined"
		return nil
	case decision.ModifiedArgs != nil:
		call.Args = decision.ModifiedArgs
		call.IsModifying = false
		t, err := m.registry.Get(call.Name)
		if err != nil {
			return err
		}
		if confirmable, ok := t.(tool.Confirmable); ok {
			details, err := confirmable.ShouldConfirm(ctx, call.Args)
			if err != nil {
				return err
			}
			call.Confirmation = details
		}
		return nil
	case decision.ProceedAlways != "":
		m.approval.remember(decision.ProceedAlways, call)
		call.State = StateScheduled
		return nil
	case decision.ProceedOnce:
		call.State = StateScheduled
		return nil
	default:
		return fmt.Errorf("toolcall: empty decision for call %s", callID)
	}
}

// LiveOutputFunc is invoked by a tool implementing onLiveOutput semantics
// to push incremental output into the call's LiveOutput field.
type LiveOutputFunc func(chunk string)

// Execute transitions every StateScheduled call in the current batch to
// StateExecuting simultaneously once no call remains in validating,
// awaiting_approval, or (already) executing, runs them concurrently, and
// blocks until all have reached a terminal state or ctx is cancelled.
func (m *Manager) Execute(ctx context.Context) (*ToolCallBatch, error) {
	m.mu.Lock()
	batch := m.current
	m.mu.Unlock()
	if batch == nil {
		return nil, fmt.Errorf("toolcall: no batch in flight")
	}
	if !batch.ReadyToExecute() {
		return batch, nil
	}

	var wg sync.WaitGroup
	for _, call := range batch.Calls {
		if call.State != StateScheduled {
			continue
		}
		call.State = StateExecuting
		wg.Add(1)
		go func(c *ToolCall) {
			defer wg.Done()
			m.runOne(ctx, c)
		}(call)
	}
	wg.Wait()
	return batch, nil
}

func (m *Manager) runOne(ctx context.Context, call *ToolCall) {
	select {
	case <-ctx.Done():
		call.State = StateCancelled
		call.ErrorKind = ErrorCancelled
		call.ErrorMessage = ctx.Err().Error()
		return
	default:
	}

	m.log.Debug().Str("call_id", call.ID).Str("tool", call.Name).Msg("toolcall: executing")
	defer func() {
		m.log.Debug().Str("call_id", call.ID).Str("tool", call.Name).Str("state", string(call.State)).Msg("toolcall: finished")
	}()

	result, err := m.registry.Execute(ctx, call.Name, call.Args)
	if ctx.Err() != nil && (err != nil || result == nil) {
		call.State = StateCancelled
		call.ErrorKind = ErrorCancelled
		call.ErrorMessage = ctx.Err().Error()
		return
	}
	if err != nil {
		call.State = StateError
		call.ErrorKind = ErrorExecution
		call.ErrorMessage = err.Error()
		return
	}
	call.Result = result
	if result != nil && !result.Success {
		call.State = StateError
		call.ErrorKind = ErrorExecution
		if result.Error != nil {
			call.ErrorMessage = result.Error.Error()
		} else {
			call.ErrorMessage = result.Output
		}
		return
	}
	call.State = StateSuccess
}

// FunctionResponses collects the terminal batch's function-response parts
// in original call order, per the ordering guarantee in spec §5.
func FunctionResponses(batch *ToolCallBatch) []convo.Part {
	parts := make([]convo.Part, 0, len(batch.Calls))
	for _, call := range batch.Calls {
		if call.IsClientInitiated {
			continue
		}
		parts = append(parts, toFunctionResponse(call))
	}
	return parts
}

// AllModelInitiatedCancelled reports whether every non-client-initiated
// call in the batch ended cancelled, the condition that keeps the
// scheduler from re-entering the model this turn.
func AllModelInitiatedCancelled(batch *ToolCallBatch) bool {
	any := false
	for _, call := range batch.Calls {
		if call.IsClientInitiated {
			continue
		}
		any = true
		if call.State != StateCancelled {
			return false
		}
	}
	return any
}
