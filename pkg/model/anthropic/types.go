package anthropic

import "time"

const (
	defaultModel      = "claude-sonnet-4-20250514"
	defaultMaxTokens  = 4096
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second

	// maxEmptyStreamEvents bounds how many consecutive SSE events may carry
	// no chunk-worthy content before the stream is treated as malformed and
	// aborted, guarding against a server that floods empty events.
	maxEmptyStreamEvents = 300
)

// Config groups Anthropic connection settings. NewProvider takes no
// arguments and NewModel reads its settings from modelpkg.ModelConfig, so
// nothing in this package reads Config.
type Config struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}
