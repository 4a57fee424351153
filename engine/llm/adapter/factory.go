package llmadapter

import (
	"context"
	"fmt"

	"github.com/relembraq/relembraq/engine/core"
)

// Limits throttles clients built by DefaultFactory. Zero values disable the
// corresponding limit.
type Limits struct {
	Concurrency       int
	RequestsPerSecond float64
	Burst             int
}

// DefaultFactory builds langchaingo-backed clients.
type DefaultFactory struct {
	limits Limits
}

// NewDefaultFactory creates a factory applying limits to every client.
func NewDefaultFactory(limits Limits) Factory {
	return &DefaultFactory{limits: limits}
}

// CreateClient creates a new LLMClient for the given provider
func (f *DefaultFactory) CreateClient(ctx context.Context, config *core.ProviderConfig) (LLMClient, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config must not be nil")
	}
	switch config.Provider {
	case core.ProviderOpenAI, core.ProviderAnthropic, core.ProviderGroq,
		core.ProviderMock, core.ProviderOllama, core.ProviderGoogle,
		core.ProviderDeepSeek, core.ProviderXAI:
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
	adapter, err := NewLangChainAdapter(ctx, config)
	if err != nil {
		return nil, err
	}
	if f.limits.Concurrency <= 0 && f.limits.RequestsPerSecond <= 0 {
		return adapter, nil
	}
	limiter := NewRateLimiter(
		string(config.Provider),
		f.limits.Concurrency,
		f.limits.RequestsPerSecond,
		f.limits.Burst,
	)
	return WithRateLimit(adapter, limiter, string(config.Provider), config.Model), nil
}
