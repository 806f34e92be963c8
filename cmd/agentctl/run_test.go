package main

import (
	"testing"

	"github.com/ninetwolabs/agentrt/pkg/toolcall"
)

func TestParseApprovalMode(t *testing.T) {
	cases := map[string]toolcall.Mode{
		"":          toolcall.ModeDefault,
		"default":   toolcall.ModeDefault,
		"auto-edit": toolcall.ModeAutoEdit,
		"autoedit":  toolcall.ModeAutoEdit,
		"YOLO":      toolcall.ModeYOLO,
	}
	for in, want := range cases {
		got, err := parseApprovalMode(in)
		if err != nil {
			t.Fatalf("parseApprovalMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseApprovalMode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseApprovalModeRejectsUnknown(t *testing.T) {
	if _, err := parseApprovalMode("bogus"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
