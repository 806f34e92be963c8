package tool

import "context"

// Tool is the contract every executable capability implements, whether it
// is a built-in (file, shell, memory, todo) or discovered from an MCP
// server. Name/Description/Schema describe the tool to the model; Execute
// performs the side effect.
type Tool interface {
	Name() string
	Description() string
	Schema() *JSONSchema
	Execute(ctx context.Context, params map[string]interface{}) (*ToolResult, error)
}

// ServerNamer is implemented by tools that were discovered from an external
// MCP server, so the registry can group or filter tools by origin.
type ServerNamer interface {
	ServerName() string
}

// Confirmable is implemented by tools whose execution may need human
// sign-off before running (a shell command, a destructive file write, an
// MCP tool call). ShouldConfirm returns nil when no confirmation is needed
// for the given params.
type Confirmable interface {
	ShouldConfirm(ctx context.Context, params map[string]interface{}) (*ConfirmationDetails, error)
}

// ConfirmationKind tags the shape of a confirmation prompt so a UI layer
// can render it appropriately without inspecting tool internals.
type ConfirmationKind string

const (
	ConfirmEdit ConfirmationKind = "edit"
	ConfirmExec ConfirmationKind = "exec"
	ConfirmMCP  ConfirmationKind = "mcp"
	ConfirmInfo ConfirmationKind = "info"
)

// ConfirmationDetails describes what a tool call is about to do and what
// scopes of "always proceed" the caller may grant. Fields are tagged by
// which ConfirmationKind populates them: Command/RootCommand for exec,
// ServerName/ToolName/DisplayName for mcp, Diff for edit, Prompt/URLs for
// info (a plain informational confirmation with no diff or command to
// show, e.g. a tool that is about to make an outbound request).
type ConfirmationDetails struct {
	Kind        ConfirmationKind
	Title       string
	Command     string
	RootCommand string
	ServerName  string
	ToolName    string
	DisplayName string
	Diff        *FileDiff
	Prompt      string
	URLs        []string
}

// FileDiff carries the before/after content a shouldConfirm(edit) prompt
// shows the user.
type FileDiff struct {
	Path     string
	OldText  string
	NewText  string
	IsCreate bool
}

// Modifiable is implemented by tools that support the "modify in editor"
// confirmation flow: the user edits the proposed content before it is
// applied, and the tool re-derives its params from the edited text.
type Modifiable interface {
	ProposedContent(ctx context.Context, params map[string]interface{}) (string, error)
	ApplyModifiedContent(ctx context.Context, params map[string]interface{}, edited string) (map[string]interface{}, error)
}

// FunctionDeclaration is the model-facing shape of a tool: name,
// description and JSON schema, with nothing execution-specific.
type FunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters,omitempty"`
}
