package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/event"
	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
	"github.com/ninetwolabs/agentrt/pkg/tool"
	"github.com/ninetwolabs/agentrt/pkg/toolcall"
	"github.com/ninetwolabs/agentrt/pkg/turn"
)

// New constructs the default Agent implementation: a facade over a
// pkg/convo.Session, a pkg/toolcall.Manager and a pkg/turn.Scheduler, one
// fresh instance of each per Run/RunStream call so concurrent turns never
// share session state.
func New(cfg Config) (Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Model == nil {
		return nil, errors.New("config model is required")
	}
	return &basicAgent{
		cfg:      cfg,
		registry: tool.NewRegistry(),
	}, nil
}

type basicAgent struct {
	cfg      Config
	hooks    []Hook
	registry *tool.Registry
	toolMu   sync.Mutex
}

// autoConfirm approves every awaiting_approval call once, matching the
// facade's non-interactive contract: a caller wanting real human sign-off
// drives pkg/turn.Scheduler directly instead of going through this facade.
type autoConfirm struct{}

func (autoConfirm) RequestConfirmation(ctx context.Context, call *toolcall.ToolCall) (toolcall.Decision, error) {
	return toolcall.Decision{ProceedOnce: true}, nil
}

func (a *basicAgent) newScheduler(ctx context.Context, runCtx RunContext) (*turn.Scheduler, *convo.Session) {
	tools := toModelToolDeclarations(a.registry.GetFunctionDeclarations())
	session := convo.NewSession(a.cfg.Model, a.cfg.SystemInstruction, tools, a.cfg.TokenLimit)
	if a.cfg.FallbackModelName != "" {
		session.SetFlashFallback(a.cfg.FallbackModelName, func(current, fallback string) bool { return false })
	}

	manager := toolcall.NewManager(a.registry)
	manager.SetMode(approvalModeFor(runCtx.ApprovalMode))

	scheduler := turn.NewScheduler(session, manager)
	scheduler.SetConfirmationRequester(autoConfirm{})
	return scheduler, session
}

func toModelToolDeclarations(decls []tool.FunctionDeclaration) []modelpkg.ToolDeclaration {
	out := make([]modelpkg.ToolDeclaration, 0, len(decls))
	for _, d := range decls {
		var schema []byte
		if d.Parameters != nil {
			schema, _ = json.Marshal(d.Parameters)
		}
		out = append(out, modelpkg.ToolDeclaration{Name: d.Name, Description: d.Description, Schema: schema})
	}
	return out
}

func (a *basicAgent) Run(ctx context.Context, input string) (*RunResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	sanitized, err := sanitizeInput(input)
	if err != nil {
		return nil, err
	}

	override, _ := GetRunContext(ctx)
	runCtx := a.cfg.ResolveContext(override)
	if runCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runCtx.Timeout)
		defer cancel()
	}

	if err := runHooks(a.hooks, false, func(h Hook) error {
		return h.PreRun(ctx, sanitized)
	}); err != nil {
		return nil, err
	}

	scheduler, _ := a.newScheduler(ctx, runCtx)
	collector := newResultCollector(runCtx.SessionID)
	scheduler.OnUpdate(collector.observe)

	runErr := scheduler.Submit(ctx, sanitized)
	result := collector.build()

	if err := a.runPostHooks(ctx, result); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return result, runErr
}

func (a *basicAgent) RunStream(ctx context.Context, input string) (<-chan event.Event, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	sanitized, err := sanitizeInput(input)
	if err != nil {
		return nil, err
	}

	override, _ := GetRunContext(ctx)
	runCtx := a.cfg.ResolveContext(override)
	scheduler, _ := a.newScheduler(ctx, runCtx)

	ch := make(chan event.Event, a.cfg.streamBuffer())
	scheduler.OnUpdate(func(evt event.Event) {
		select {
		case ch <- evt:
		case <-ctx.Done():
		}
	})

	go func() {
		defer close(ch)
		if err := scheduler.Submit(ctx, sanitized); err != nil {
			select {
			case ch <- event.NewEvent(event.EventError, runCtx.SessionID, err.Error()):
			case <-ctx.Done():
			}
		}
	}()

	return ch, nil
}

func (a *basicAgent) AddTool(t tool.Tool) error {
	if t == nil {
		return errors.New("tool is nil")
	}
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return errors.New("tool name is empty")
	}
	a.toolMu.Lock()
	defer a.toolMu.Unlock()
	if _, err := a.registry.Get(name); err == nil {
		return fmt.Errorf("tool %s already registered", name)
	}
	return a.registry.Register(&hookedTool{inner: t, agent: a})
}

func (a *basicAgent) WithHook(h Hook) Agent {
	if h == nil {
		return a
	}
	clone := *a
	clone.hooks = append(append([]Hook(nil), a.hooks...), h)
	return &clone
}

func (a *basicAgent) runPostHooks(ctx context.Context, result *RunResult) error {
	return runHooks(a.hooks, true, func(h Hook) error {
		return h.PostRun(ctx, result)
	})
}

// hookedTool wraps a registered tool so PreToolCall/PostToolCall fire
// around every Execute, while forwarding Confirmable so the tool call
// manager's approval gating still sees through the wrapper. ServerNamer
// and Modifiable are not forwarded: tools added through AddTool are always
// local/manual registrations, never MCP-discovered ones (those go through
// pkg/tool/mcpdiscovery straight into the registry), so neither concern
// arises here.
type hookedTool struct {
	inner tool.Tool
	agent *basicAgent
}

func (h *hookedTool) Name() string             { return h.inner.Name() }
func (h *hookedTool) Description() string      { return h.inner.Description() }
func (h *hookedTool) Schema() *tool.JSONSchema { return h.inner.Schema() }

func (h *hookedTool) ShouldConfirm(ctx context.Context, params map[string]interface{}) (*tool.ConfirmationDetails, error) {
	if c, ok := h.inner.(tool.Confirmable); ok {
		return c.ShouldConfirm(ctx, params)
	}
	return nil, nil
}

func (h *hookedTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if err := runHooks(h.agent.hooks, false, func(hk Hook) error {
		return hk.PreToolCall(ctx, h.inner.Name(), params)
	}); err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := h.inner.Execute(ctx, params)
	call := ToolCall{Name: h.inner.Name(), Params: params, Output: result, Duration: time.Since(started)}
	if err != nil {
		call.Error = err.Error()
	}
	if hookErr := runHooks(h.agent.hooks, true, func(hk Hook) error {
		return hk.PostToolCall(ctx, h.inner.Name(), call)
	}); hookErr != nil {
		err = errors.Join(err, hookErr)
	}
	return result, err
}

func sanitizeInput(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("input is empty")
	}
	return trimmed, nil
}

func runHooks(hooks []Hook, collect bool, fn func(Hook) error) error {
	var joined error
	for _, hook := range hooks {
		if err := fn(hook); err != nil {
			if !collect {
				return err
			}
			joined = errors.Join(joined, err)
		}
	}
	return joined
}

// resultCollector turns the Scheduler's forwarded events into the facade's
// coarser RunResult shape: an assembled text output, the tool calls
// observed, final usage numbers and a stop reason.
type resultCollector struct {
	sessionID  string
	events     []event.Event
	textBuf    strings.Builder
	toolCalls  []ToolCall
	usage      TokenUsage
	stopReason string
}

func newResultCollector(sessionID string) *resultCollector {
	return &resultCollector{sessionID: sessionID, stopReason: "complete"}
}

func (c *resultCollector) observe(evt event.Event) {
	c.events = append(c.events, evt)
	switch evt.Type {
	case event.EventContent:
		if text, ok := evt.Data.(string); ok {
			c.textBuf.WriteString(text)
		}
	case event.EventToolCallsUpdated:
		if call, ok := evt.Data.(*toolcall.ToolCall); ok && call.State.Terminal() {
			c.toolCalls = append(c.toolCalls, ToolCall{
				Name:   call.Name,
				Params: call.Args,
				Output: call.Result,
				Error:  call.ErrorMessage,
			})
		}
	case event.EventUsageMetadata:
		if u, ok := evt.Data.(streamdemux.UsageMetadata); ok {
			c.usage.InputTokens += u.InputTokens
			c.usage.OutputTokens += u.OutputTokens
			c.usage.TotalTokens = c.usage.InputTokens + c.usage.OutputTokens
		}
	case event.EventError:
		c.stopReason = "error"
	case event.EventUserCancelled:
		c.stopReason = "cancelled"
	}
}

func (c *resultCollector) build() *RunResult {
	return &RunResult{
		Output:     c.textBuf.String(),
		ToolCalls:  c.toolCalls,
		Usage:      c.usage,
		StopReason: c.stopReason,
		Events:     c.events,
	}
}
