package agent

import "testing"

func TestDecodeConfigYAML(t *testing.T) {
	data := []byte(`
name: yaml-agent
system_instruction: be terse
token_limit: 4096
fallback_model: claude-haiku
default_context:
  session_id: sess-1
`)
	cfg, err := DecodeConfigYAML(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Name != "yaml-agent" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if cfg.SystemInstruction != "be terse" {
		t.Fatalf("unexpected system instruction: %q", cfg.SystemInstruction)
	}
	if cfg.TokenLimit != 4096 {
		t.Fatalf("unexpected token limit: %d", cfg.TokenLimit)
	}
	if cfg.FallbackModelName != "claude-haiku" {
		t.Fatalf("unexpected fallback model: %q", cfg.FallbackModelName)
	}
}

func TestDecodeConfigYAMLRejectsMissingName(t *testing.T) {
	if _, err := DecodeConfigYAML([]byte(`system_instruction: be terse`)); err == nil {
		t.Fatal("expected validation error for missing name")
	}
}

func TestDecodeConfigYAMLRejectsEmptyPayload(t *testing.T) {
	if _, err := DecodeConfigYAML(nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
