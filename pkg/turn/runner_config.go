package turn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

// RunnerConfig is the small set of scheduler-wide knobs an operator tunes
// per deployment: approval posture, the continuation budget, the
// compression trigger threshold, and where checkpoint sidecars live. It is
// decoded the same way the teacher's pkg/config decodes settings: plain
// JSON with validation, no third-party config library.
type RunnerConfig struct {
	ApprovalMode         toolcall.Mode `json:"approval_mode"`
	MaxTurns             int           `json:"max_turns"`
	CompressionThreshold float64       `json:"compression_threshold"`
	CheckpointDir        string        `json:"checkpoint_dir"`
}

// LoadRunnerConfig reads and decodes a RunnerConfig from path.
func LoadRunnerConfig(path string) (*RunnerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("turn: read runner config: %w", err)
	}
	return DecodeRunnerConfig(data)
}

// DecodeRunnerConfig parses a raw JSON payload into a RunnerConfig,
// applying defaults for any zero-valued field and validating the result.
func DecodeRunnerConfig(data []byte) (*RunnerConfig, error) {
	if len(data) == 0 {
		return nil, errors.New("turn: runner config payload is empty")
	}
	cfg := RunnerConfig{
		ApprovalMode:         toolcall.ModeDefault,
		MaxTurns:             defaultMaxTurns,
		CompressionThreshold: defaultCompressionThreshold,
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("turn: decode runner config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the ranges the scheduler and session assume.
func (c *RunnerConfig) Validate() error {
	switch c.ApprovalMode {
	case toolcall.ModeDefault, toolcall.ModeAutoEdit, toolcall.ModeYOLO:
	default:
		return fmt.Errorf("turn: unknown approval_mode %q", c.ApprovalMode)
	}
	if c.MaxTurns <= 0 {
		return fmt.Errorf("turn: max_turns must be positive, got %d", c.MaxTurns)
	}
	if c.CompressionThreshold <= 0 || c.CompressionThreshold > 1 {
		return fmt.Errorf("turn: compression_threshold must be in (0, 1], got %f", c.CompressionThreshold)
	}
	return nil
}
