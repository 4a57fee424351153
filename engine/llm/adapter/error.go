package llmadapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
)

var transientRetryPattern = regexp.MustCompile(`(?i)(timeout|temporarily|try again|temporarily unavailable)`)

const (
	ErrCodeRateLimit         = "RATE_LIMIT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeServerError       = "SERVER_ERROR"
	ErrCodeServiceUnavail    = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeConnectionReset   = "CONNECTION_RESET"
	ErrCodeConnectionRefused = "CONNECTION_REFUSED"
	ErrCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	ErrCodeInvalidModel      = "INVALID_MODEL"
	ErrCodeContentPolicy     = "CONTENT_POLICY"
	ErrCodeEmptyResponse     = "EMPTY_RESPONSE"
)

// Error is a classified provider failure.
type Error struct {
	Code       string
	StatusCode int
	Message    string
	Provider   string
	Err        error
}

// NewError classifies an error by HTTP status code.
func NewError(statusCode int, message, provider string, err error) *Error {
	return &Error{
		Code:       codeForStatus(statusCode),
		StatusCode: statusCode,
		Message:    message,
		Provider:   provider,
		Err:        err,
	}
}

// NewErrorWithCode builds an error with an explicit classification.
func NewErrorWithCode(code, message, provider string, err error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Provider: provider,
		Err:      err,
	}
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether repeating the call may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeServiceUnavail,
		ErrCodeTimeout, ErrCodeConnectionReset, ErrCodeConnectionRefused, ErrCodeEmptyResponse:
		return true
	default:
		return false
	}
}

// AsError extracts a classified *Error from err.
func AsError(err error) (*Error, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case status == http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return ErrCodeForbidden
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status == http.StatusServiceUnavailable:
		return ErrCodeServiceUnavail
	case status == http.StatusGatewayTimeout, status == http.StatusRequestTimeout:
		return ErrCodeTimeout
	case status >= 500:
		return ErrCodeServerError
	default:
		return ErrCodeBadRequest
	}
}

// IsRetryable reports whether err is worth another attempt. Cancellation never
// is; deadlines, network errors and transient provider failures are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if llmErr, ok := AsError(err); ok {
		return llmErr.IsRetryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if parsed := NewErrorParser("").ParseError(err); parsed != nil {
		return parsed.IsRetryable()
	}
	return transientRetryPattern.MatchString(err.Error())
}
