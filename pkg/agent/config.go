package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

const defaultStreamBuffer = 4

// Config stores the coarse grained runtime settings for an Agent instance.
// Model is required: New rejects a Config carrying a nil Model since
// nothing about the turn scheduler this package wraps can run without one.
type Config struct {
	Name              string     `json:"name" yaml:"name"`
	Description       string     `json:"description" yaml:"description"`
	DefaultContext    RunContext `json:"default_context" yaml:"default_context"`
	StreamBuffer      int        `json:"stream_buffer" yaml:"stream_buffer"`
	SystemInstruction string     `json:"system_instruction" yaml:"system_instruction"`
	TokenLimit        int        `json:"token_limit" yaml:"token_limit"`
	FallbackModelName string     `json:"fallback_model" yaml:"fallback_model"`

	Model modelpkg.Model `json:"-" yaml:"-"`
}

// approvalModeFor maps the config-level ApprovalMode knob onto the
// toolcall package's Mode, so RunContext.ApprovalMode (a pre-existing,
// generic approval knob) drives the same Manager every other caller uses.
func approvalModeFor(mode ApprovalMode) toolcall.Mode {
	switch mode {
	case ApprovalNone:
		return toolcall.ModeYOLO
	case ApprovalAuto:
		return toolcall.ModeAutoEdit
	default:
		return toolcall.ModeDefault
	}
}

// LoadConfig loads and validates configuration from disk.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return DecodeConfig(data)
}

// DecodeConfig parses a raw JSON payload into a Config instance.
func DecodeConfig(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, errors.New("config payload is empty")
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DefaultContext = cfg.DefaultContext.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigYAML loads and validates configuration from a YAML file, the
// format cmd/agentctl's --config flag accepts alongside the JSON path
// LoadConfig already covers.
func LoadConfigYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return DecodeConfigYAML(data)
}

// DecodeConfigYAML parses a raw YAML payload into a Config instance.
func DecodeConfigYAML(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, errors.New("config payload is empty")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DefaultContext = cfg.DefaultContext.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces minimal structural guarantees.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("config name is required")
	}
	if c.StreamBuffer < 0 {
		return fmt.Errorf("stream_buffer cannot be negative: %d", c.StreamBuffer)
	}
	c.DefaultContext = c.DefaultContext.Normalize()
	return nil
}

// ResolveContext merges the configuration defaults with a caller override.
func (c Config) ResolveContext(override RunContext) RunContext {
	return c.DefaultContext.Merge(override)
}

func (c Config) streamBuffer() int {
	if c.StreamBuffer <= 0 {
		return defaultStreamBuffer
	}
	return c.StreamBuffer
}
