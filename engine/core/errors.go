package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// ErrCodeInvalidConfiguration marks input or option values rejected before any service call.
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	// ErrCodeServiceFailure marks completion or embedding calls that failed after retries.
	ErrCodeServiceFailure = "SERVICE_FAILURE"
	// ErrCodeMalformedResponse marks a completion reply that is not the expected JSON shape.
	// It is recovered locally and never leaves the summary package.
	ErrCodeMalformedResponse = "MALFORMED_RESPONSE"
)

// Error is a coded error carrying structured details for logs and CLI output.
type Error struct {
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

// NewError builds a coded error. The message defaults to the cause text.
func NewError(err error, code string, details map[string]any) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    code,
		Message: msg,
		Details: details,
		Cause:   err,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.ReplaceAll(e.Code, "_", " ")))
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return other.Code == e.Code
}

var (
	ErrInvalidConfiguration = &Error{Code: ErrCodeInvalidConfiguration}
	ErrServiceFailure       = &Error{Code: ErrCodeServiceFailure}
	ErrMalformedResponse    = &Error{Code: ErrCodeMalformedResponse}
)

// InvalidConfiguration reports a rejected option, naming the parameter.
func InvalidConfiguration(param string, format string, args ...any) *Error {
	return NewError(fmt.Errorf(format, args...), ErrCodeInvalidConfiguration, map[string]any{
		"param": param,
	})
}

// ServiceFailure wraps a failed external call with the pipeline stage and item index.
func ServiceFailure(cause error, stage string, indexKey string, index int) *Error {
	return NewError(cause, ErrCodeServiceFailure, map[string]any{
		"stage":  stage,
		indexKey: index,
	})
}

// ErrorCode returns the code of the first *Error in the chain, or "".
func ErrorCode(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

func IsServiceFailure(err error) bool {
	return errors.Is(err, ErrServiceFailure)
}
