package anthropic

import (
	"context"
	"math"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

// Ensure AnthropicModel implements the Model interface.
var _ modelpkg.Model = (*AnthropicModel)(nil)

// AnthropicModel is a concrete model backed by the official Anthropic SDK's
// Messages API.
type AnthropicModel struct {
	client     anthropic.Client
	model      string
	opts       modelOptions
	maxRetries int
	retryDelay time.Duration
}

// Name reports the underlying Claude model identifier.
func (m *AnthropicModel) Name() string {
	return m.model
}

// Generate performs a single non-streaming Messages API call and folds the
// response back into a modelpkg.Message.
func (m *AnthropicModel) Generate(ctx context.Context, req modelpkg.Request) (modelpkg.Message, error) {
	params, err := m.buildParams(req)
	if err != nil {
		return modelpkg.Message{}, err
	}

	var resp *anthropic.Message
	for attempt := 0; ; attempt++ {
		resp, err = m.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		wrapped := wrapError(err, m.model)
		if attempt >= m.maxRetries || !isRetryableError(wrapped) {
			return modelpkg.Message{}, wrapped
		}
		if waitErr := m.backoff(ctx, attempt); waitErr != nil {
			return modelpkg.Message{}, waitErr
		}
	}

	return convertFromSDKMessage(resp), nil
}

// Stream invokes the streaming Messages API and relays incremental events
// as modelpkg.StreamChunk over the returned channel, which is closed when
// the turn finishes or the context is cancelled.
func (m *AnthropicModel) Stream(ctx context.Context, req modelpkg.Request) (<-chan modelpkg.StreamChunk, error) {
	params, err := m.buildParams(req)
	if err != nil {
		return nil, err
	}

	out := make(chan modelpkg.StreamChunk)
	go func() {
		defer close(out)
		stream := m.client.Messages.NewStreaming(ctx, params)
		processStream(ctx, stream, out, m.model)
	}()
	return out, nil
}

func (m *AnthropicModel) backoff(ctx context.Context, attempt int) error {
	delay := m.retryDelay * time.Duration(math.Pow(2, float64(attempt)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (m *AnthropicModel) buildParams(req modelpkg.Request) (anthropic.MessageNewParams, error) {
	messages, err := convertMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := m.opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}

	system := req.System
	if m.opts.System != "" {
		if system != "" {
			system = system + "\n\n" + m.opts.System
		} else {
			system = m.opts.System
		}
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if len(req.Tools) > 0 {
		tools, err := convertTools(req.Tools)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Tools = tools
	}

	if m.opts.Temperature != nil {
		params.Temperature = anthropic.Float(*m.opts.Temperature)
	}
	if m.opts.TopP != nil {
		params.TopP = anthropic.Float(*m.opts.TopP)
	}
	if m.opts.TopK != nil {
		params.TopK = anthropic.Int(int64(*m.opts.TopK))
	}
	if m.opts.EnableThinking {
		budget := m.opts.ThinkingBudget
		if budget < 1024 {
			budget = 10000
		}
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(budget)
	}

	return params, nil
}
