package embedder

import (
	"context"
	"time"

	"github.com/relembraq/relembraq/engine/core"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGoogle Provider = "google"
	ProviderMock   Provider = "mock"
)

// Embedder turns one text into one vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config describes a provider-backed embedder.
type Config struct {
	Provider      Provider
	Model         string
	APIKey        string
	BaseURL       string
	BatchSize     int
	StripNewLines bool
	CacheSize     int
	// Timeout bounds each provider call.
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Retry     core.RetryPolicy
}
