package llmadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/relembraq/relembraq/engine/infra/monitoring/metrics"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	meterName    = "relembraq.llm"
	subsystemLLM = "llm"
)

var (
	metricsOnce    sync.Once
	metricsInitErr error
	errorLogOnce   sync.Once
	requestsTotal  metric.Int64Counter
	requestLatency metric.Float64Histogram
)

// RecordRequest captures the outcome and latency of one completion call.
func RecordRequest(ctx context.Context, provider, model string, duration time.Duration, err error) {
	if !ensureInstruments(ctx) {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if parsed := NewErrorParser(provider).ParseError(err); parsed != nil {
			outcome = parsed.Code
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	)
	requestsTotal.Add(ctx, 1, attrs)
	requestLatency.Record(ctx, duration.Seconds(), attrs)
}

func ensureInstruments(ctx context.Context) bool {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		var err error
		requestsTotal, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(subsystemLLM, "requests_total"),
			metric.WithDescription("Completion requests by outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create llm requests counter: %w", err)
			return
		}
		requestLatency, err = meter.Float64Histogram(
			monitoringmetrics.MetricNameWithSubsystem(subsystemLLM, "latency_seconds"),
			metric.WithDescription("Completion request latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(monitoringmetrics.LatencyBuckets...),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create llm latency histogram: %w", err)
		}
	})
	if metricsInitErr != nil {
		errorLogOnce.Do(func() {
			logger.FromContext(ctx).Error("llm metrics disabled", "error", metricsInitErr)
		})
		return false
	}
	return true
}
