package convo

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
	"github.com/ninetwolabs/agentrt/pkg/streamdemux"
)

const (
	defaultMaxAttempts          = 5
	defaultInitialDelay         = 5 * time.Second
	defaultMaxDelay             = 30 * time.Second
	defaultCompressionThreshold = 0.95
	summaryAcknowledgement      = "acknowledged"
)

// CompressionSnapshot records the before/after token counts of a
// tryCompress pass.
type CompressionSnapshot struct {
	OriginalTokenCount int
	NewTokenCount      int
}

// FlashFallbackHandler is invoked after two consecutive 429s; returning
// true means the caller switched the session's model and the request
// should retry immediately at the new model.
type FlashFallbackHandler func(current, fallback string) bool

// Session owns the comprehensive history for one conversation, the active
// model, and the tool list advertised on every request. sendMu enforces
// the "second send waits for the first to finish appending" ordering
// guarantee: SendStream blocks on it before doing any work and only
// releases it after the model's output has been folded into history.
type Session struct {
	mu    sync.Mutex
	sendMu sync.Mutex

	history           *History
	model             modelpkg.Model
	fallbackModel     string
	systemInstruction string
	tools             []modelpkg.ToolDeclaration
	tokenLimit        int

	maxAttempts          int
	initialDelay         time.Duration
	maxDelay             time.Duration
	flashFallback        FlashFallbackHandler
	compressionThreshold float64

	now func() time.Time
	log zerolog.Logger
}

// NewSession constructs a Session bound to model, advertising tools and
// enforcing tokenLimit for compression decisions.
func NewSession(model modelpkg.Model, systemInstruction string, tools []modelpkg.ToolDeclaration, tokenLimit int) *Session {
	return &Session{
		history:           NewHistory(),
		model:             model,
		systemInstruction: systemInstruction,
		tools:             tools,
		tokenLimit:        tokenLimit,
		maxAttempts:          defaultMaxAttempts,
		initialDelay:         defaultInitialDelay,
		maxDelay:             defaultMaxDelay,
		compressionThreshold: defaultCompressionThreshold,
		now:                  time.Now,
		log:                  zerolog.Nop(),
	}
}

// SetCompressionThreshold overrides the fraction of tokenLimit that
// triggers automatic compression in TryCompress, matching
// RunnerConfig.CompressionThreshold. A non-positive value is ignored.
func (s *Session) SetCompressionThreshold(threshold float64) {
	if threshold <= 0 || threshold > 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compressionThreshold = threshold
}

// SetLogger attaches a structured logger for retry/compression tracing.
// A Session defaults to a disabled logger, matching the teacher's
// opt-in-by-construction shape for optional collaborators (hooks,
// flash fallback) rather than requiring every caller to pass one.
func (s *Session) SetLogger(logger zerolog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = logger
}

// SetFlashFallback configures the persistent-429 fallback collaborator and
// the model name it switches to.
func (s *Session) SetFlashFallback(fallbackModel string, handler FlashFallbackHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackModel = fallbackModel
	s.flashFallback = handler
}

// AppendUser appends a user message to the comprehensive history.
func (s *Session) AppendUser(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Role = RoleUser
	s.history.Append(msg)
}

// AppendModel appends a model message, applying the merge rules from
// spec §4.3: thought-only parts are dropped before the message reaches
// here (streamdemux never turns a Thought into a TextPart), adjacent
// text-only model parts are coalesced, and an empty result still produces
// an empty message so role alternation is preserved.
func (s *Session) AppendModel(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.Role = RoleModel
	msg.Parts = coalesceText(msg.Parts)
	s.history.Append(msg)
}

func coalesceText(parts []Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if tp, ok := p.(TextPart); ok {
			if n := len(out); n > 0 {
				if prev, ok := out[n-1].(TextPart); ok {
					out[n-1] = TextPart{Text: prev.Text + tp.Text}
					continue
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// SetHistory replaces the comprehensive history wholesale.
func (s *Session) SetHistory(messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = NewHistory()
	for _, m := range messages {
		s.history.Append(m)
	}
}

// Clear empties the history.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = NewHistory()
}

// InsertEmptyTextIntoLastModel delegates to History.InsertEmptyTextIntoLastModel,
// used by the turn scheduler's next-speaker shortcut per spec §4.6 step 7.
func (s *Session) InsertEmptyTextIntoLastModel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.InsertEmptyTextIntoLastModel()
}

// GetHistory returns a deep-copied view: curated when curated is true,
// comprehensive otherwise.
func (s *Session) GetHistory(curated bool) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if curated {
		return s.history.Curated()
	}
	return s.history.Comprehensive()
}

// CountTokens is a heuristic character-based approximation (roughly four
// characters per token, the common rule of thumb for English text) since
// no tokenizer library ships in this stack; a real deployment would swap
// this for the provider's countTokens endpoint.
func (s *Session) CountTokens(history []Message) int {
	total := 0
	for _, m := range history {
		total += len(m.Text()) / 4
		for _, fc := range m.FunctionCalls() {
			total += len(fc.Name) + estimateArgTokens(fc.Args)
		}
	}
	return total
}

func estimateArgTokens(args map[string]any) int {
	total := 0
	for k, v := range args {
		total += len(k) / 4
		if s, ok := v.(string); ok {
			total += len(s) / 4
		} else {
			total += 4
		}
	}
	return total
}

// SendStream sends the session's current curated history to the model and
// returns a channel of demultiplexed events. It retries transient failures
// with exponential backoff and jitter, escalating to the configured flash
// fallback model after two consecutive 429s, grounded on the
// consecutive-429-counting retry loop this package's teacher imitates from
// the Python retry_with_backoff helper. It never retries a cancelled ctx.
func (s *Session) SendStream(ctx context.Context) (<-chan streamdemux.StreamEvent, error) {
	s.sendMu.Lock()

	s.mu.Lock()
	curated := s.history.Curated()
	req := modelpkg.Request{System: s.systemInstruction, Messages: toModelMessages(curated), Tools: s.tools}
	activeModel := s.model
	s.mu.Unlock()

	chunks, err := s.streamWithRetry(ctx, activeModel, req)
	if err != nil {
		s.sendMu.Unlock()
		return nil, err
	}

	demuxed := streamdemux.Demux(ctx, chunks, s.now)
	out := make(chan streamdemux.StreamEvent)

	go func() {
		defer close(out)
		defer s.sendMu.Unlock()

		var parts []Part
		for evt := range demuxed {
			switch e := evt.(type) {
			case streamdemux.Content:
				parts = append(parts, TextPart{Text: e.Text})
			case streamdemux.FunctionCall:
				parts = append(parts, FunctionCallPart{ID: e.ID, Name: e.Name, Args: e.Args})
			case streamdemux.Thought:
				// Thought parts are surfaced to listeners but dropped from
				// history per the merge rule "drop model parts that are
				// purely thought".
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
		s.AppendModel(Message{Parts: parts, Timestamp: s.now(), Valid: true})
	}()

	return out, nil
}

func (s *Session) streamWithRetry(ctx context.Context, m modelpkg.Model, req modelpkg.Request) (<-chan modelpkg.StreamChunk, error) {
	delay := s.initialDelay
	consecutive429 := 0
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		chunks, err := m.Stream(ctx, req)
		if err == nil {
			return chunks, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		if isRateLimited(err) {
			consecutive429++
		} else {
			consecutive429 = 0
		}

		if consecutive429 >= 2 && s.flashFallback != nil && s.fallbackModel != "" {
			s.mu.Lock()
			current := s.model
			currentName := current.Name()
			s.mu.Unlock()
			if s.flashFallback(currentName, s.fallbackModel) {
				attempt = 0
				consecutive429 = 0
				delay = s.initialDelay
				continue
			}
		}

		if attempt >= s.maxAttempts || !isTransientError(err) {
			return nil, fmt.Errorf("convo: stream failed after %d attempts: %w", attempt, lastErr)
		}

		jitter := time.Duration(float64(delay) * 0.3 * (rand.Float64()*2 - 1))
		wait := delay + jitter
		if wait < 0 {
			wait = 0
		}
		s.log.Debug().Int("attempt", attempt).Dur("wait", wait).Err(err).Msg("convo: retrying stream")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
	return nil, lastErr
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

// isTransientError matches the teacher's default_should_retry convention:
// a plain substring check for 429/5xx rather than a typed error hierarchy.
func isTransientError(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "429") {
		return true
	}
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// TryCompress summarizes and resets the session when curated history
// approaches the model's context limit (or unconditionally when force is
// true), returning the before/after token counts, or nil if compression
// did not fire.
func (s *Session) TryCompress(ctx context.Context, force bool) (*CompressionSnapshot, error) {
	s.mu.Lock()
	curated := s.history.Curated()
	tokenLimit := s.tokenLimit
	threshold := s.compressionThreshold
	m := s.model
	system := s.systemInstruction
	s.mu.Unlock()

	original := s.CountTokens(curated)
	if !force && (tokenLimit <= 0 || float64(original) < threshold*float64(tokenLimit)) {
		return nil, nil
	}
	s.log.Debug().Int("tokens", original).Bool("forced", force).Msg("convo: compressing history")

	summaryReq := modelpkg.Request{
		System:   system,
		Messages: append(toModelMessages(curated), modelpkg.Message{Role: "user", Content: summarizationPrompt}),
	}
	resp, err := m.Generate(ctx, summaryReq)
	if err != nil {
		return nil, fmt.Errorf("convo: compress: %w", err)
	}

	summary := resp.Content
	s.SetHistory([]Message{
		NewUserMessage(s.now(), TextPart{Text: summary}),
		NewModelMessage(s.now(), TextPart{Text: summaryAcknowledgement}),
	})

	newCount := s.CountTokens(s.GetHistory(true))
	s.log.Debug().Int("before", original).Int("after", newCount).Msg("convo: history compressed")
	return &CompressionSnapshot{OriginalTokenCount: original, NewTokenCount: newCount}, nil
}

const summarizationPrompt = "Summarize the conversation so far in a way that preserves everything needed to continue the task without the original messages."

// GenerateAux runs a one-shot, non-stream generation against the curated
// history plus an extra user-role prompt, without touching history. Used
// by the turn scheduler's next-speaker check and similar auxiliary calls
// that must see the conversation but not become part of it.
func (s *Session) GenerateAux(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	curated := s.history.Curated()
	req := modelpkg.Request{
		System:   s.systemInstruction,
		Messages: append(toModelMessages(curated), modelpkg.Message{Role: "user", Content: prompt}),
	}
	m := s.model
	s.mu.Unlock()

	resp, err := m.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ModelName returns the active model's identifier, mostly useful for
// logging and the flash-fallback handler.
func (s *Session) ModelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Name()
}

// SwitchModel replaces the active model, used by a flash-fallback handler
// after it decides to downgrade.
func (s *Session) SwitchModel(m modelpkg.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = m
}
