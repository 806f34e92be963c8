package turn

import (
	"testing"

	"github.com/ninetwolabs/agentrt/pkg/convo"
	"github.com/ninetwolabs/agentrt/pkg/tool"
	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

func TestDecodeRunnerConfigDefaults(t *testing.T) {
	cfg, err := DecodeRunnerConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.ApprovalMode != toolcall.ModeDefault {
		t.Fatalf("unexpected default approval mode: %s", cfg.ApprovalMode)
	}
	if cfg.MaxTurns != defaultMaxTurns {
		t.Fatalf("unexpected default max turns: %d", cfg.MaxTurns)
	}
	if cfg.CompressionThreshold != defaultCompressionThreshold {
		t.Fatalf("unexpected default compression threshold: %f", cfg.CompressionThreshold)
	}
}

func TestDecodeRunnerConfigOverrides(t *testing.T) {
	cfg, err := DecodeRunnerConfig([]byte(`{"approval_mode":"YOLO","max_turns":5,"compression_threshold":0.5,"checkpoint_dir":"/tmp/checkpoints"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.ApprovalMode != toolcall.ModeYOLO {
		t.Fatalf("unexpected approval mode: %s", cfg.ApprovalMode)
	}
	if cfg.MaxTurns != 5 {
		t.Fatalf("unexpected max turns: %d", cfg.MaxTurns)
	}
	if cfg.CompressionThreshold != 0.5 {
		t.Fatalf("unexpected compression threshold: %f", cfg.CompressionThreshold)
	}
	if cfg.CheckpointDir != "/tmp/checkpoints" {
		t.Fatalf("unexpected checkpoint dir: %s", cfg.CheckpointDir)
	}
}

func TestDecodeRunnerConfigRejectsBadMaxTurns(t *testing.T) {
	if _, err := DecodeRunnerConfig([]byte(`{"max_turns":0}`)); err == nil {
		t.Fatal("expected error for non-positive max_turns")
	}
}

func TestDecodeRunnerConfigRejectsBadThreshold(t *testing.T) {
	if _, err := DecodeRunnerConfig([]byte(`{"compression_threshold":1.5}`)); err == nil {
		t.Fatal("expected error for out-of-range compression_threshold")
	}
}

func TestSchedulerApplyRunnerConfig(t *testing.T) {
	session := convo.NewSession(tickerFakeModel{}, "", nil, 0)
	manager := toolcall.NewManager(tool.NewRegistry())
	scheduler := NewScheduler(session, manager)

	scheduler.ApplyRunnerConfig(RunnerConfig{ApprovalMode: toolcall.ModeYOLO, MaxTurns: 7, CompressionThreshold: 0.5})

	if scheduler.maxTurns != 7 {
		t.Fatalf("expected max turns to be applied, got %d", scheduler.maxTurns)
	}
}
