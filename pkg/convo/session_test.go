package convo

import (
	"context"
	"errors"
	"testing"
	"time"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

type fakeModel struct {
	name       string
	streamErrs []error
	chunks     []modelpkg.StreamChunk
	generateFn func(req modelpkg.Request) (modelpkg.Message, error)
	calls      int
}

func (f *fakeModel) Name() string { return f.name }

func (f *fakeModel) Generate(ctx context.Context, req modelpkg.Request) (modelpkg.Message, error) {
	if f.generateFn != nil {
		return f.generateFn(req)
	}
	return modelpkg.Message{Role: "assistant", Content: "summary"}, nil
}

func (f *fakeModel) Stream(ctx context.Context, req modelpkg.Request) (<-chan modelpkg.StreamChunk, error) {
	if f.calls < len(f.streamErrs) {
		err := f.streamErrs[f.calls]
		if err != nil {
			f.calls++
			return nil, err
		}
	}
	f.calls++
	ch := make(chan modelpkg.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func fixedClock() time.Time { return time.Unix(1_700_000_000, 0) }

func TestSessionAppendAndCurate(t *testing.T) {
	s := NewSession(&fakeModel{name: "m"}, "", nil, 0)
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "hi"}))
	s.AppendModel(Message{Parts: []Part{TextPart{Text: "hello"}}, Timestamp: fixedClock(), Valid: true})

	curated := s.GetHistory(true)
	if len(curated) != 2 {
		t.Fatalf("expected 2 curated messages, got %d", len(curated))
	}
	if curated[1].Text() != "hello" {
		t.Fatalf("unexpected model text: %q", curated[1].Text())
	}
}

func TestSessionSendStreamAppendsAssembledMessage(t *testing.T) {
	m := &fakeModel{
		name: "m",
		chunks: []modelpkg.StreamChunk{
			{Type: modelpkg.ChunkTextDelta, TextDelta: "hel"},
			{Type: modelpkg.ChunkTextDelta, TextDelta: "lo"},
			{Type: modelpkg.ChunkDone, Usage: &modelpkg.Usage{InputTokens: 1, OutputTokens: 2}},
		},
	}
	s := NewSession(m, "", nil, 0)
	s.now = fixedClock
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "hi"}))

	events, err := s.SendStream(context.Background())
	if err != nil {
		t.Fatalf("send stream: %v", err)
	}
	for range events {
	}

	curated := s.GetHistory(true)
	if len(curated) != 2 {
		t.Fatalf("expected 2 messages after send, got %d", len(curated))
	}
	if curated[1].Text() != "hello" {
		t.Fatalf("expected coalesced 'hello', got %q", curated[1].Text())
	}
}

func TestSessionSendStreamRecordsFunctionCalls(t *testing.T) {
	m := &fakeModel{
		name: "m",
		chunks: []modelpkg.StreamChunk{
			{Type: modelpkg.ChunkToolCallStart, ToolName: "shell", ToolCallID: "call-1"},
			{Type: modelpkg.ChunkToolCallDelta, ToolInputDelta: `{"cmd"`},
			{Type: modelpkg.ChunkToolCallStop, ToolCallID: "call-1", ToolName: "shell", ToolInputDelta: `{"cmd":"ls"}`},
			{Type: modelpkg.ChunkDone},
		},
	}
	s := NewSession(m, "", nil, 0)
	s.now = fixedClock
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "list files"}))

	events, err := s.SendStream(context.Background())
	if err != nil {
		t.Fatalf("send stream: %v", err)
	}
	for range events {
	}

	comprehensive := s.GetHistory(false)
	if len(comprehensive) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(comprehensive))
	}
	calls := comprehensive[1].FunctionCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 recorded function call, got %d", len(calls))
	}
	if calls[0].ID != "call-1" || calls[0].Name != "shell" {
		t.Fatalf("unexpected function call recorded: %+v", calls[0])
	}
	if calls[0].Args["cmd"] != "ls" {
		t.Fatalf("unexpected function call args: %+v", calls[0].Args)
	}
}

func TestSessionRetriesTransientErrors(t *testing.T) {
	m := &fakeModel{
		name:       "m",
		streamErrs: []error{errors.New("429 rate limited"), nil},
		chunks:     []modelpkg.StreamChunk{{Type: modelpkg.ChunkDone}},
	}
	s := NewSession(m, "", nil, 0)
	s.initialDelay = time.Millisecond
	s.maxDelay = time.Millisecond
	s.now = fixedClock
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "hi"}))

	events, err := s.SendStream(context.Background())
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	for range events {
	}
	if m.calls != 2 {
		t.Fatalf("expected 2 stream attempts, got %d", m.calls)
	}
}

func TestSessionTryCompressForced(t *testing.T) {
	m := &fakeModel{name: "m"}
	s := NewSession(m, "", nil, 100)
	s.now = fixedClock
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "hi"}))
	s.AppendModel(Message{Parts: []Part{TextPart{Text: "hello"}}, Timestamp: fixedClock(), Valid: true})

	snap, err := s.TryCompress(context.Background(), true)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if snap == nil {
		t.Fatalf("expected a snapshot")
	}
	curated := s.GetHistory(true)
	if len(curated) != 2 {
		t.Fatalf("expected 2 seed messages after compression, got %d", len(curated))
	}
	if curated[1].Text() != summaryAcknowledgement {
		t.Fatalf("expected acknowledgement seed, got %q", curated[1].Text())
	}
}

func TestSessionTryCompressSkipsBelowThreshold(t *testing.T) {
	m := &fakeModel{name: "m"}
	s := NewSession(m, "", nil, 1_000_000)
	s.AppendUser(NewUserMessage(fixedClock(), TextPart{Text: "hi"}))

	snap, err := s.TryCompress(context.Background(), false)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if snap != nil {
		t.Fatalf("expected no compression below threshold")
	}
}
