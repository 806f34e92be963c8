package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	modelpkg "github.com/ninetwolabs/agentrt/pkg/model"
)

// Ensure AnthropicProvider satisfies the Provider interface at compile time.
var _ modelpkg.Provider = (*AnthropicProvider)(nil)

// AnthropicProvider wires Anthropic-backed model implementations into the
// factory, building one anthropic.Client per model from the ModelConfig it
// receives (API key, base URL, and extra headers all travel with the
// config rather than living on the provider).
type AnthropicProvider struct{}

// NewProvider returns a stateless AnthropicProvider. Kept as a constructor
// (rather than a bare literal) so callers read the same way regardless of
// provider backend.
func NewProvider() *AnthropicProvider {
	return &AnthropicProvider{}
}

// Name advertises the provider identifier used by the factory.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// NewModel materializes an AnthropicModel configured according to cfg.
func (p *AnthropicProvider) NewModel(ctx context.Context, cfg modelpkg.ModelConfig) (modelpkg.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}

	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = strings.TrimSpace(cfg.Name)
	}
	if modelName == "" {
		modelName = defaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	for k, v := range cfg.Headers {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		opts = append(opts, option.WithHeader(k, v))
	}

	modelOpts := parseModelOptions(cfg.Extra)

	return &AnthropicModel{
		client:     anthropic.NewClient(opts...),
		model:      modelName,
		opts:       modelOpts,
		maxRetries: modelOpts.maxRetries(),
		retryDelay: modelOpts.retryDelay(),
	}, nil
}
