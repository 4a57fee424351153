package pipeline

import (
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/infra/sqlite"
	"github.com/relembraq/relembraq/engine/knowledge/embedder"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/engine/memory/tokens"
	"github.com/relembraq/relembraq/engine/summary"
	"github.com/relembraq/relembraq/pkg/config"
)

// Deps are the collaborators of a run. LLM and Embedder are required;
// Checkpoints may be nil to disable resume.
type Deps struct {
	LLM         llmadapter.LLMClient
	Embedder    embedder.Embedder
	Counter     tokens.Counter
	Checkpoints *sqlite.CheckpointRepo
	// Prompt overrides the built-in instruction when set.
	Prompt *template.Template

	closers []func() error
}

// NewDeps builds provider-backed collaborators from cfg. Callers own the
// result and must Close it.
func NewDeps(ctx context.Context, cfg *config.Config) (*Deps, error) {
	deps := &Deps{
		Counter: tokens.FallbackCounter{
			Primary:   tokens.NewTiktokenCounter(cfg.Summary.TokenEncoding),
			Secondary: tokens.WordCounter{},
		},
	}
	if cfg.Summary.PromptFile != "" {
		prompt, err := summary.LoadPrompt(cfg.Summary.PromptFile)
		if err != nil {
			return nil, core.NewError(err, core.ErrCodeInvalidConfiguration, map[string]any{"param": "summary.prompt_file"})
		}
		deps.Prompt = prompt
	}
	factory := llmadapter.NewDefaultFactory(llmLimits(cfg))
	client, err := factory.CreateClient(ctx, providerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}
	deps.LLM = client
	deps.closers = append(deps.closers, client.Close)
	emb, err := embedder.New(ctx, embedderConfig(cfg))
	if err != nil {
		_ = deps.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	deps.Embedder = emb
	if cfg.Checkpoint.Enabled {
		store, err := sqlite.NewStore(ctx, &sqlite.Config{Path: cfg.Checkpoint.Path})
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init checkpoint store: %w", err)
		}
		deps.Checkpoints = sqlite.NewCheckpointRepo(store.DB())
		deps.closers = append(deps.closers, store.Close)
	}
	return deps, nil
}

// Close releases everything NewDeps opened, in reverse order.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func (d *Deps) validate() error {
	if d == nil || d.LLM == nil {
		return core.InvalidConfiguration("llm", "completion client is required")
	}
	if d.Embedder == nil {
		return core.InvalidConfiguration("embedder", "embedding client is required")
	}
	return nil
}

func llmLimits(cfg *config.Config) llmadapter.Limits {
	return llmadapter.Limits{
		Concurrency:       cfg.LLM.Concurrency,
		RequestsPerSecond: cfg.LLM.RateLimit,
		Burst:             cfg.LLM.Burst,
	}
}

func providerConfig(cfg *config.Config) *core.ProviderConfig {
	p := core.NewProviderConfig(core.ProviderName(cfg.LLM.Provider), cfg.LLM.Model, cfg.LLM.APIKey.Value())
	p.APIURL = cfg.LLM.BaseURL
	p.Organization = cfg.LLM.Organization
	p.Params = core.PromptParams{
		MaxTokens:   int32(cfg.LLM.MaxTokens),
		Temperature: cfg.LLM.Temperature,
	}
	return p
}

func embedderConfig(cfg *config.Config) *embedder.Config {
	apiKey := cfg.Embedder.APIKey.Value()
	if apiKey == "" && cfg.Embedder.Provider == cfg.LLM.Provider {
		apiKey = cfg.LLM.APIKey.Value()
	}
	return &embedder.Config{
		Provider:      embedder.Provider(cfg.Embedder.Provider),
		Model:         cfg.Embedder.Model,
		APIKey:        apiKey,
		BaseURL:       cfg.Embedder.BaseURL,
		BatchSize:     cfg.Embedder.BatchSize,
		StripNewLines: true,
		CacheSize:     cfg.Embedder.CacheSize,
		Timeout:       cfg.Embedder.Timeout,
		RateLimit:     cfg.Embedder.RateLimit,
		Burst:         cfg.Embedder.Burst,
		Retry:         retryPolicy(cfg),
	}
}

func retryPolicy(cfg *config.Config) core.RetryPolicy {
	return core.RetryPolicy{
		MaxRetries:  cfg.Retry.MaxRetries,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}
}
