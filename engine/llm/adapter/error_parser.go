package llmadapter

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

var statusCodePattern = regexp.MustCompile(`(?i)(?:status code:?|http|error|code)\s*(\d{3})\b`)

// ErrorParser classifies raw provider errors into *Error values
type ErrorParser struct {
	provider string
}

// NewErrorParser creates a new error parser for the given provider
func NewErrorParser(provider string) *ErrorParser {
	return &ErrorParser{provider: provider}
}

// ParseError returns nil when nothing recognizable is found.
func (p *ErrorParser) ParseError(err error) *Error {
	if err == nil {
		return nil
	}
	if existing, ok := AsError(err); ok {
		return existing
	}
	errMsg := err.Error()
	lower := strings.ToLower(errMsg)
	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCode(ErrCodeTimeout, errMsg, p.provider, err)
	}
	if status := p.extractHTTPStatusCode(errMsg); status > 0 {
		return NewError(status, errMsg, p.provider, err)
	}
	if llmErr := p.matchProviderPatterns(lower, errMsg, err); llmErr != nil {
		return llmErr
	}
	return p.matchNetworkPatterns(lower, errMsg, err)
}

func (p *ErrorParser) extractHTTPStatusCode(errMsg string) int {
	match := statusCodePattern.FindStringSubmatch(errMsg)
	if len(match) < 2 {
		return 0
	}
	code, err := strconv.Atoi(match[1])
	if err != nil || code < 400 || code >= 600 {
		return 0
	}
	return code
}

func (p *ErrorParser) matchProviderPatterns(lower, errMsg string, originalErr error) *Error {
	if strings.Contains(lower, "insufficient_quota") || strings.Contains(lower, "quota exceeded") {
		return NewErrorWithCode(ErrCodeQuotaExceeded, errMsg, p.provider, originalErr)
	}
	for _, pattern := range []string{
		"rate limit", "rate-limit", "ratelimit", "rate_limit_error", "too many requests", "throttl",
	} {
		if strings.Contains(lower, pattern) {
			return NewError(http.StatusTooManyRequests, errMsg, p.provider, originalErr)
		}
	}
	for _, pattern := range []string{
		"service unavailable", "temporarily unavailable", "overloaded", "try again later",
	} {
		if strings.Contains(lower, pattern) {
			return NewError(http.StatusServiceUnavailable, errMsg, p.provider, originalErr)
		}
	}
	for _, pattern := range []string{"unauthorized", "invalid api key", "invalid_api_key", "authentication"} {
		if strings.Contains(lower, pattern) {
			return NewError(http.StatusUnauthorized, errMsg, p.provider, originalErr)
		}
	}
	if strings.Contains(lower, "invalid model") || strings.Contains(lower, "model not found") {
		return NewErrorWithCode(ErrCodeInvalidModel, errMsg, p.provider, originalErr)
	}
	if strings.Contains(lower, "content policy") {
		return NewErrorWithCode(ErrCodeContentPolicy, errMsg, p.provider, originalErr)
	}
	return nil
}

func (p *ErrorParser) matchNetworkPatterns(lower, errMsg string, originalErr error) *Error {
	for _, pattern := range []string{"timeout", "timed out", "deadline exceeded"} {
		if strings.Contains(lower, pattern) {
			return NewErrorWithCode(ErrCodeTimeout, errMsg, p.provider, originalErr)
		}
	}
	if strings.Contains(lower, "connection reset") || strings.Contains(lower, "eof") {
		return NewErrorWithCode(ErrCodeConnectionReset, errMsg, p.provider, originalErr)
	}
	for _, pattern := range []string{"connection refused", "no such host", "network is unreachable"} {
		if strings.Contains(lower, pattern) {
			return NewErrorWithCode(ErrCodeConnectionRefused, errMsg, p.provider, originalErr)
		}
	}
	return nil
}
