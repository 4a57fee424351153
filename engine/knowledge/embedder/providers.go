package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

func buildProviderEmbedder(
	ctx context.Context,
	cfg *Config,
	options ...embeddings.Option,
) (embeddings.Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		client, err = buildOpenAIClient(cfg)
	case ProviderOllama:
		client, err = buildOllamaClient(cfg)
	case ProviderGoogle:
		client, err = buildGoogleClient(ctx, cfg)
	case ProviderMock:
		client = NewMockClient(mockDimension)
	default:
		return nil, fmt.Errorf("embedding provider %q is not supported", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s embedding client: %w", cfg.Provider, err)
	}
	embedder, err := embeddings.NewEmbedder(client, options...)
	if err != nil {
		return nil, fmt.Errorf("construct %s embedder: %w", cfg.Provider, err)
	}
	return embedder, nil
}

func buildOpenAIClient(cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func buildOllamaClient(cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	return ollama.New(opts...)
}

func buildGoogleClient(ctx context.Context, cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []googleai.Option{googleai.WithDefaultEmbeddingModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	return googleai.New(ctx, opts...)
}
