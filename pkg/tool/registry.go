package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry keeps the mapping between tool names and implementations. Tools
// registered through RegisterDiscovered are tracked separately so a fresh
// MCP discovery pass can atomically replace only the previously-discovered
// set without disturbing built-ins.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	discovery map[string]struct{}
	validator Validator
}

// NewRegistry creates a registry backed by the default validator.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		discovery: make(map[string]struct{}),
		validator: DefaultValidator{},
	}
}

// Register inserts a built-in tool. A tool already registered under the
// same name is replaced (last writer wins) and, if it was a discovered
// tool, is no longer tracked as discovered. It returns an error only for a
// nil tool or an empty name.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		delete(r.discovery, name)
	}
	r.tools[name] = t
	return nil
}

// RegisterDiscovered inserts or replaces a tool sourced from a live
// discovery pass (e.g. an MCP server's tool list). Last-writer-wins: a
// discovered tool silently overrides an earlier registration of the same
// name, matching the "last-writer-wins with a warning" registration policy
// for externally-sourced tools; callers should log the overwrite using the
// bool return value.
func (r *Registry) RegisterDiscovered(t Tool) (overwrote bool) {
	if t == nil || t.Name() == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, overwrote = r.tools[t.Name()]
	r.tools[t.Name()] = t
	r.discovery[t.Name()] = struct{}{}
	return overwrote
}

// ReplaceDiscovered atomically removes every previously-discovered tool and
// installs the new set, used when an MCP server's tool list changes between
// polls.
func (r *Registry) ReplaceDiscovered(tools []Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.discovery {
		delete(r.tools, name)
	}
	r.discovery = make(map[string]struct{}, len(tools))
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			continue
		}
		r.tools[t.Name()] = t
		r.discovery[t.Name()] = struct{}{}
	}
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// List produces a snapshot of all registered tools, sorted by name for
// deterministic iteration in logs and tests.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolsByServer returns the discovered tools whose ServerNamer reports
// serverName.
func (r *Registry) GetToolsByServer(serverName string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Tool
	for name := range r.discovery {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		if namer, ok := t.(ServerNamer); ok && namer.ServerName() == serverName {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name() < matched[j].Name() })
	return matched
}

// GetFunctionDeclarations renders every registered tool as the
// model-facing FunctionDeclaration shape, sorted by name.
func (r *Registry) GetFunctionDeclarations() []FunctionDeclaration {
	tools := r.List()
	decls := make([]FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return decls
}

// SetValidator swaps the validator instance used before execution.
func (r *Registry) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// Execute runs a registered tool after optional schema validation.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (*ToolResult, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	if schema := t.Schema(); schema != nil {
		r.mu.RLock()
		validator := r.validator
		r.mu.RUnlock()

		if validator != nil {
			if err := validator.Validate(params, schema); err != nil {
				return nil, fmt.Errorf("tool %s validation failed: %w", name, err)
			}
		}
	}

	return t.Execute(ctx, params)
}
