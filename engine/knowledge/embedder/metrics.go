package embedder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/relembraq/relembraq/engine/infra/monitoring/metrics"
	llmadapter "github.com/relembraq/relembraq/engine/llm/adapter"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	meterName           = "relembraq.embedding"
	subsystemEmbeddings = "embedding"
	modelOther          = "other"
)

var (
	metricsOnce       sync.Once
	metricsInitErr    error
	errorLogOnce      sync.Once
	metricInstruments instruments
)

type instruments struct {
	requestsTotal metric.Int64Counter
	latency       metric.Float64Histogram
	cacheHits     metric.Int64Counter
}

// normalizeModelName keeps metric cardinality bounded.
func normalizeModelName(model string) string {
	normalized := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(normalized, "text-embedding-3"):
		return "text-embedding-3"
	case strings.HasPrefix(normalized, "text-embedding-ada"):
		return "text-embedding-ada"
	case strings.HasPrefix(normalized, "nomic-embed"):
		return "nomic-embed"
	case normalized == "mock":
		return "mock"
	default:
		return modelOther
	}
}

func recordRequest(ctx context.Context, provider Provider, model string, duration time.Duration, err error) {
	if !ensureInstruments(ctx) {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if parsed := llmadapter.NewErrorParser(string(provider)).ParseError(err); parsed != nil {
			outcome = strings.ToLower(parsed.Code)
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("model", normalizeModelName(model)),
		attribute.String("outcome", outcome),
	)
	metricInstruments.requestsTotal.Add(ctx, 1, attrs)
	metricInstruments.latency.Record(ctx, duration.Seconds(), attrs)
}

func recordCacheHit(ctx context.Context, provider Provider) {
	if !ensureInstruments(ctx) {
		return
	}
	metricInstruments.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", string(provider))))
}

func ensureInstruments(ctx context.Context) bool {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		var err error
		metricInstruments.requestsTotal, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(subsystemEmbeddings, "requests_total"),
			metric.WithDescription("Embedding requests by outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create embedding requests counter: %w", err)
			return
		}
		metricInstruments.latency, err = meter.Float64Histogram(
			monitoringmetrics.MetricNameWithSubsystem(subsystemEmbeddings, "latency_seconds"),
			metric.WithDescription("Embedding request latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(monitoringmetrics.LatencyBuckets...),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create embedding latency histogram: %w", err)
			return
		}
		metricInstruments.cacheHits, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(subsystemEmbeddings, "cache_hits_total"),
			metric.WithDescription("Embeddings served from cache"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create embedding cache counter: %w", err)
		}
	})
	if metricsInitErr != nil {
		errorLogOnce.Do(func() {
			logger.FromContext(ctx).Error("embedding metrics disabled", "error", metricsInitErr)
		})
		return false
	}
	return true
}
