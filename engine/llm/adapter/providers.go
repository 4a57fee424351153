package llmadapter

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/relembraq/relembraq/engine/core"
)

// CreateLLMFactory creates an LLM instance based on the provider configuration
func CreateLLMFactory(ctx context.Context, provider *core.ProviderConfig) (llms.Model, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider config cannot be nil")
	}
	switch provider.Provider {
	case core.ProviderOpenAI:
		return createOpenAICompatibleLLM(provider, "")
	case core.ProviderGroq:
		return createOpenAICompatibleLLM(provider, "https://api.groq.com/openai/v1")
	case core.ProviderDeepSeek:
		return createOpenAICompatibleLLM(provider, "https://api.deepseek.com/v1")
	case core.ProviderXAI:
		return createOpenAICompatibleLLM(provider, "https://api.x.ai/v1")
	case core.ProviderAnthropic:
		return createAnthropicLLM(provider)
	case core.ProviderOllama:
		return createOllamaLLM(provider)
	case core.ProviderGoogle:
		return createGoogleLLM(ctx, provider)
	case core.ProviderMock:
		return NewMockLLM(provider.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider.Provider)
	}
}

// createOpenAICompatibleLLM serves OpenAI and every provider exposing its API shape.
func createOpenAICompatibleLLM(p *core.ProviderConfig, defaultBaseURL string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, openai.WithToken(p.APIKey))
	}
	baseURL := defaultBaseURL
	if p.APIURL != "" {
		baseURL = p.APIURL
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if p.Organization != "" {
		opts = append(opts, openai.WithOrganization(p.Organization))
	}
	return openai.New(opts...)
}

func createAnthropicLLM(p *core.ProviderConfig) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, anthropic.WithToken(p.APIKey))
	}
	if p.APIURL != "" {
		opts = append(opts, anthropic.WithBaseURL(p.APIURL))
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("anthropic does not support organization")
	}
	return anthropic.New(opts...)
}

func createOllamaLLM(p *core.ProviderConfig) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(p.Model),
	}
	if p.APIURL != "" {
		opts = append(opts, ollama.WithServerURL(p.APIURL))
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("ollama does not support organization")
	}
	return ollama.New(opts...)
}

func createGoogleLLM(ctx context.Context, p *core.ProviderConfig) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(p.APIKey))
	}
	if p.APIURL != "" {
		return nil, fmt.Errorf("googleai does not support custom API URL")
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("googleai does not support organization")
	}
	return googleai.New(ctx, opts...)
}
