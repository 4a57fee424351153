package llmadapter

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RateLimiter caps concurrent calls and request rate for one provider.
type RateLimiter struct {
	provider    string
	sem         *semaphore.Weighted
	rateLimiter *rate.Limiter
	metrics     limiterMetrics
}

// RateLimiterMetricsSnapshot provides introspection for active/rejected counters.
type RateLimiterMetricsSnapshot struct {
	ActiveRequests   int32
	RejectedRequests int64
	TotalRequests    int64
}

type limiterMetrics struct {
	activeRequests   atomic.Int32
	rejectedRequests atomic.Int64
	totalRequests    atomic.Int64
}

// NewRateLimiter builds a limiter. A zero requestsPerSecond disables rate pacing;
// concurrency below one is treated as one.
func NewRateLimiter(provider string, concurrency int, requestsPerSecond float64, burst int) *RateLimiter {
	if concurrency < 1 {
		concurrency = 1
	}
	l := &RateLimiter{
		provider: provider,
		sem:      semaphore.NewWeighted(int64(concurrency)),
	}
	if requestsPerSecond > 0 {
		l.rateLimiter = rate.NewLimiter(rate.Limit(requestsPerSecond), computeBurst(requestsPerSecond, burst))
	}
	return l
}

func computeBurst(perSecond float64, configured int) int {
	if configured > 0 {
		return configured
	}
	if perSecond <= 0 {
		return 1
	}
	return int(math.Ceil(perSecond))
}

// Acquire blocks until a slot is free and the rate allows another request.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.metrics.totalRequests.Add(1)
	if err := l.sem.Acquire(ctx, 1); err != nil {
		l.metrics.rejectedRequests.Add(1)
		return NewErrorWithCode(ErrCodeRateLimit, "rate limit wait canceled", l.provider, err)
	}
	l.metrics.activeRequests.Add(1)
	if l.rateLimiter != nil {
		if err := l.rateLimiter.Wait(ctx); err != nil {
			l.Release()
			l.metrics.rejectedRequests.Add(1)
			return NewErrorWithCode(ErrCodeRateLimit, "request rate wait canceled", l.provider, err)
		}
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *RateLimiter) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
	l.metrics.activeRequests.Add(-1)
}

// Metrics returns a snapshot of the limiter counters.
func (l *RateLimiter) Metrics() RateLimiterMetricsSnapshot {
	return RateLimiterMetricsSnapshot{
		ActiveRequests:   l.metrics.activeRequests.Load(),
		RejectedRequests: l.metrics.rejectedRequests.Load(),
		TotalRequests:    l.metrics.totalRequests.Load(),
	}
}

// limitedClient throttles an LLMClient and records call metrics.
type limitedClient struct {
	inner    LLMClient
	limiter  *RateLimiter
	provider string
	model    string
}

// WithRateLimit wraps client so every call passes through limiter.
func WithRateLimit(client LLMClient, limiter *RateLimiter, provider, model string) LLMClient {
	return &limitedClient{inner: client, limiter: limiter, provider: provider, model: model}
}

func (c *limitedClient) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()
	start := time.Now()
	resp, err := c.inner.GenerateContent(ctx, req)
	RecordRequest(ctx, c.provider, c.model, time.Since(start), err)
	return resp, err
}

func (c *limitedClient) Close() error {
	return c.inner.Close()
}
