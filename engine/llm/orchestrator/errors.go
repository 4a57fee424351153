package orchestrator

import (
	"context"
	"errors"

	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/pkg/logger"
)

// ErrAttemptsExhausted marks a call that kept failing with retryable errors.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

func isRetryableErrorWithContext(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	// The caller's context is gone; another attempt would fail the same way.
	if ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	retryable := llmadapter.IsRetryable(err)
	if retryable {
		logger.FromContext(ctx).Debug("Error is retryable, will retry", "error", err)
	}
	return retryable
}
