package anthropic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

var (
	errStreamEvent     = errors.New("anthropic stream error")
	errMalformedStream = errors.New("anthropic: stream appears malformed: too many consecutive empty events")
)

// wrapError annotates err with the model name and, when it is an
// *anthropic.Error, its status code and request id, using %w so the
// original error remains inspectable via errors.As/errors.Is.
func wrapError(err error, model string) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic: model %s: status %d request %s: %w", model, apiErr.StatusCode, apiErr.RequestID, err)
	}
	return fmt.Errorf("anthropic: model %s: %w", model, err)
}

// isRetryableError classifies transient failures (rate limits, server
// errors, timeouts, connection resets) as retryable.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		case 400, 401, 403, 404:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate_limit"), strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return true
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"),
		strings.Contains(msg, "internal server error"), strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "service unavailable"), strings.Contains(msg, "gateway timeout"):
		return true
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return true
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return true
	default:
		return false
	}
}
