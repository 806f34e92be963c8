package anthropic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type modelOptions struct {
	MaxTokens          int
	Temperature        *float64
	TopP               *float64
	TopK               *int
	System             string
	EnableThinking     bool
	ThinkingBudget     int64
	MaxRetries         int
	RetryDelayMillis   int
}

func (o modelOptions) maxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return defaultMaxRetries
}

func (o modelOptions) retryDelay() time.Duration {
	if o.RetryDelayMillis > 0 {
		return time.Duration(o.RetryDelayMillis) * time.Millisecond
	}
	return defaultRetryDelay
}

func parseModelOptions(extra map[string]any) modelOptions {
	opts := modelOptions{MaxTokens: defaultMaxTokens}
	if len(extra) == 0 {
		return opts
	}
	for key, val := range extra {
		switch strings.ToLower(key) {
		case "max_tokens":
			if v, ok := toInt(val); ok {
				opts.MaxTokens = v
			}
		case "temperature":
			if v, ok := toFloat(val); ok {
				opts.Temperature = &v
			}
		case "top_p":
			if v, ok := toFloat(val); ok {
				opts.TopP = &v
			}
		case "top_k":
			if v, ok := toInt(val); ok {
				opts.TopK = &v
			}
		case "system":
			opts.System = fmt.Sprint(val)
		case "thinking":
			if v, ok := val.(bool); ok {
				opts.EnableThinking = v
			}
		case "thinking_budget_tokens":
			if v, ok := toInt(val); ok {
				opts.ThinkingBudget = int64(v)
			}
		case "max_retries":
			if v, ok := toInt(val); ok {
				opts.MaxRetries = v
			}
		case "retry_delay_ms":
			if v, ok := toInt(val); ok {
				opts.RetryDelayMillis = v
			}
		}
	}
	return opts
}

func toInt(val any) (int, bool) {
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		return i, err == nil
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
