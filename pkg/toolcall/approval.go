package toolcall

import "sync"

// Mode is the session's global confirmation posture.
type Mode string

const (
	ModeDefault  Mode = "DEFAULT"
	ModeAutoEdit Mode = "AUTO_EDIT"
	ModeYOLO     Mode = "YOLO"
)

// ProceedScope names which "always proceed" tier a user's approval grants.
type ProceedScope string

const (
	ScopeSession ProceedScope = "session"
	ScopeServer  ProceedScope = "server"
	ScopeTool    ProceedScope = "tool"
)

// approvalMemory tracks the three always-proceed scopes from spec §4.5:
// session-wide, per-MCP-server, and per-tool-name.
type approvalMemory struct {
	mu      sync.Mutex
	session bool
	servers map[string]bool
	tools   map[string]bool
}

func newApprovalMemory() *approvalMemory {
	return &approvalMemory{servers: map[string]bool{}, tools: map[string]bool{}}
}

func (m *approvalMemory) remember(scope ProceedScope, call *ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch scope {
	case ScopeSession:
		m.session = true
	case ScopeServer:
		if call.ServerName != "" {
			m.servers[call.ServerName] = true
		}
	case ScopeTool:
		m.tools[call.Name] = true
	}
}

// satisfied reports whether a prior "always proceed" grant already covers
// call, independent of the current global Mode.
func (m *approvalMemory) satisfied(call *ToolCall) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session {
		return true
	}
	if call.ServerName != "" && m.servers[call.ServerName] {
		return true
	}
	return m.tools[call.Name]
}
