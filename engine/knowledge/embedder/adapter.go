package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"

	"github.com/relembraq/relembraq/engine/core"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/pkg/logger"
)

// Adapter wraps a langchaingo embedder with caching, rate limiting, retries
// and per-call timeouts.
type Adapter struct {
	provider Provider
	model    string
	timeout  time.Duration
	retry    core.RetryPolicy
	impl     embeddings.Embedder
	limiter  *rate.Limiter
	cacheMu  sync.Mutex
	cache    *lru.Cache[string, []float32]
}

var (
	errMissingProvider  = errors.New("embedder provider is required")
	errMissingModel     = errors.New("embedder model is required")
	errInvalidBatchSize = errors.New("embedder batch size must be greater than zero")
)

// New constructs a provider-backed embedder adapter.
func New(ctx context.Context, cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	impl, err := buildProviderEmbedder(
		ctx,
		cfg,
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	)
	if err != nil {
		return nil, err
	}
	return Wrap(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", cfg.Provider)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	a := &Adapter{
		provider: cfg.Provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		retry:    cfg.Retry,
		impl:     impl,
	}
	if a.retry.Jitter == 0 {
		a.retry.Jitter = core.DefaultRetryJitter
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.CacheSize > 0 {
		if err := a.EnableCache(cfg.CacheSize); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// EnableCache initializes an LRU cache for embeddings.
func (a *Adapter) EnableCache(size int) error {
	if size <= 0 {
		return fmt.Errorf("embedder %q: cache size must be greater than zero", a.provider)
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return fmt.Errorf("embedder %q: init cache: %w", a.provider, err)
	}
	a.cacheMu.Lock()
	a.cache = cache
	a.cacheMu.Unlock()
	return nil
}

// EmbedQuery returns the vector of one text. Cached vectors are returned as
// copies so callers may modify them.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	cache := a.getCache()
	if vector, ok := a.lookupCache(cache, text); ok {
		recordCacheHit(ctx, a.provider)
		return vector, nil
	}
	vector, err := a.embedWithRetry(ctx, text)
	if err != nil {
		return nil, a.withContext(err)
	}
	if len(vector) == 0 {
		return nil, a.withContext(errors.New("provider returned an empty vector"))
	}
	a.storeCache(cache, text, vector)
	return cloneVector(vector), nil
}

func (a *Adapter) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	log := logger.FromContext(ctx)
	var vector []float32
	err := retry.Do(ctx, a.retry.Backoff(), func(ctx context.Context) error {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		callCtx := ctx
		if a.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		start := time.Now()
		result, callErr := a.impl.EmbedQuery(callCtx, text)
		recordRequest(ctx, a.provider, a.model, time.Since(start), callErr)
		if callErr != nil {
			if ctx.Err() == nil && llmadapter.IsRetryable(callErr) {
				log.Debug("Embedding attempt failed, will retry", "provider", a.provider, "error", callErr)
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		vector = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func (a *Adapter) getCache() *lru.Cache[string, []float32] {
	a.cacheMu.Lock()
	cache := a.cache
	a.cacheMu.Unlock()
	return cache
}

func (a *Adapter) lookupCache(cache *lru.Cache[string, []float32], text string) ([]float32, bool) {
	if cache == nil {
		return nil, false
	}
	value, ok := cache.Get(cacheKey(text))
	if !ok {
		return nil, false
	}
	return cloneVector(value), true
}

func (a *Adapter) storeCache(cache *lru.Cache[string, []float32], text string, vector []float32) {
	if cache == nil || len(vector) == 0 {
		return
	}
	cache.Add(cacheKey(text), cloneVector(vector))
}

func (a *Adapter) withContext(err error) error {
	return fmt.Errorf("embedder %s/%s: %w", a.provider, a.model, err)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.Provider, errMissingModel)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.Provider, errInvalidBatchSize)
	}
	return nil
}
