// Package turn implements the Turn Scheduler: the state machine that
// drives one user turn through model streaming, tool-call scheduling, the
// self-continuation loop, and history compression, grounded on the
// call_model_node/check_tool_calls_edge/check_continuation_node pipeline
// of a LangGraph conversation graph translated into explicit Go control
// flow.
package turn

import (
	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
)

const defaultMaxTurns = 100

// defaultCompressionThreshold mirrors pkg/convo's own default of the same
// name; RunnerConfig needs its own copy since convo does not export it.
const defaultCompressionThreshold = 0.95

// Context is the per-turn state a Scheduler carries across its
// continuation loop: the remaining budget, the text buffer the UI renders
// incrementally, and the last usage metadata observed.
type Context struct {
	MaxTurns  int
	Remaining int

	pendingText string
	lastUsage   *streamdemux.UsageMetadata
}

// NewContext opens a turn with the default (or explicit) MAX_TURNS budget.
func NewContext(maxTurns int) *Context {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &Context{MaxTurns: maxTurns, Remaining: maxTurns}
}

// Decrement consumes one unit of continuation budget, reporting whether
// budget remains.
func (c *Context) Decrement() bool {
	c.Remaining--
	return c.Remaining > 0
}

// Exhausted reports whether the continuation budget has reached zero.
func (c *Context) Exhausted() bool {
	return c.Remaining <= 0
}
