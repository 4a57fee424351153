package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/relembraq/relembraq/engine/core"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/pkg/logger"
)

// LLMInvoker issues one completion request with per-attempt timeouts and
// exponential backoff between retryable failures.
type LLMInvoker interface {
	Invoke(ctx context.Context, client llmadapter.LLMClient, req *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error)
}

// Settings configures an invoker. Timeout bounds each attempt, not the whole call.
type Settings struct {
	Timeout time.Duration
	Retry   core.RetryPolicy
}

type llmInvoker struct {
	cfg Settings
}

func NewLLMInvoker(cfg Settings) LLMInvoker {
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = core.DefaultRetryJitter
	}
	return &llmInvoker{cfg: cfg}
}

func (i *llmInvoker) Invoke(
	ctx context.Context,
	client llmadapter.LLMClient,
	req *llmadapter.LLMRequest,
) (*llmadapter.LLMResponse, error) {
	log := logger.FromContext(ctx)
	var (
		response *llmadapter.LLMResponse
		lastErr  error
		attempt  int
	)
	err := retry.Do(ctx, i.cfg.Retry.Backoff(), func(ctx context.Context) error {
		attempt++
		callCtx := ctx
		if i.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
			defer cancel()
		}
		var callErr error
		response, callErr = client.GenerateContent(callCtx, req)
		if callErr == nil {
			return nil
		}
		lastErr = callErr
		if isRetryableErrorWithContext(ctx, callErr) {
			log.Debug("Completion attempt failed", "attempt", attempt, "error", callErr)
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if lastErr != nil && llmadapter.IsRetryable(lastErr) {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, lastErr)
		}
		return nil, err
	}
	return response, nil
}

// IsExhausted reports whether err came from running out of retries.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}
