package toolbuiltin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ninetwolabs/agentrt/pkg/tool"
)

const (
	memoryToolName    = "save_memory"
	memorySectionName = "## Added Memories"
)

var memorySchema = &tool.JSONSchema{
	Type: "object",
	Properties: map[string]interface{}{
		"fact": map[string]interface{}{
			"type":        "string",
			"description": "The specific fact to remember.",
		},
	},
	Required: []string{"fact"},
}

// MemoryTool appends durable facts under a Markdown section of a memory
// file. Its successful completion is the one the scheduler watches for to
// fire the memory-refresh signal; the tool itself only owns the file.
type MemoryTool struct {
	path string
}

// NewMemoryTool constructs a MemoryTool that appends to path. An empty path
// defaults to memory.md in the current directory.
func NewMemoryTool(path string) *MemoryTool {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(resolveRoot(""), "memory.md")
	}
	return &MemoryTool{path: path}
}

func (t *MemoryTool) Name() string { return memoryToolName }

func (t *MemoryTool) Description() string {
	return "Saves a specific piece of information to long-term memory."
}

func (t *MemoryTool) Schema() *tool.JSONSchema { return memorySchema }

func (t *MemoryTool) Execute(ctx context.Context, params map[string]interface{}) (*tool.ToolResult, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}
	raw, ok := params["fact"]
	if !ok {
		return nil, errors.New("fact is required")
	}
	fact, err := coerceString(raw)
	if err != nil {
		return nil, fmt.Errorf("fact must be string: %w", err)
	}
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return nil, errors.New("fact cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := appendMemoryEntry(t.path, fact); err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}

	message := fmt.Sprintf("remembered: %q", fact)
	return &tool.ToolResult{
		Success:       true,
		Output:        message,
		ReturnDisplay: message,
		Data: map[string]interface{}{
			"fact": fact,
			"path": t.path,
		},
	}, nil
}

// appendMemoryEntry inserts fact as a bullet under memorySectionName,
// creating the section (and file) if either is missing, and leaving any
// other content in the file untouched.
func appendMemoryEntry(path, fact string) error {
	item := "- " + strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fact), "-"))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	content := string(existing)

	idx := strings.Index(content, memorySectionName)
	var updated string
	if idx == -1 {
		updated = strings.TrimRight(content, "\n")
		if updated != "" {
			updated += "\n\n"
		}
		updated += memorySectionName + "\n" + item + "\n"
	} else {
		start := idx + len(memorySectionName)
		end := strings.Index(content[start:], "\n## ")
		if end == -1 {
			end = len(content)
		} else {
			end += start
		}
		section := strings.TrimSpace(content[start:end])
		newSection := strings.TrimSpace(section + "\n" + item)

		before := strings.TrimRight(content[:start], "\n")
		after := strings.TrimLeft(content[end:], "\n")

		updated = before + "\n" + newSection + "\n"
		if after != "" {
			updated += after + "\n"
		}
	}

	return os.WriteFile(path, []byte(updated), 0o644)
}
