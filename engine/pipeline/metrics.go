package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/relembraq/relembraq/engine/core"
	monitoringmetrics "github.com/relembraq/relembraq/engine/infra/monitoring/metrics"
	"github.com/relembraq/relembraq/pkg/logger"
)

const (
	meterName         = "relembraq.pipeline"
	subsystemPipeline = "pipeline"
)

var (
	metricsOnce    sync.Once
	metricsInitErr error
	errorLogOnce   sync.Once
	runsTotal      metric.Int64Counter
	runDuration    metric.Float64Histogram
)

func recordRun(ctx context.Context, duration time.Duration, err error) {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		var initErr error
		runsTotal, initErr = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem(subsystemPipeline, "runs_total"),
			metric.WithDescription("Pipeline runs by outcome"),
			metric.WithUnit("1"),
		)
		if initErr != nil {
			metricsInitErr = fmt.Errorf("create pipeline runs counter: %w", initErr)
			return
		}
		runDuration, initErr = meter.Float64Histogram(
			monitoringmetrics.MetricNameWithSubsystem(subsystemPipeline, "run_duration_seconds"),
			metric.WithDescription("Wall time of a pipeline run"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(monitoringmetrics.RunDurationBuckets...),
		)
		if initErr != nil {
			metricsInitErr = fmt.Errorf("create pipeline duration histogram: %w", initErr)
		}
	})
	if metricsInitErr != nil {
		errorLogOnce.Do(func() {
			logger.FromContext(ctx).Error("pipeline metrics disabled", "error", metricsInitErr)
		})
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome(err)))
	runsTotal.Add(ctx, 1, attrs)
	runDuration.Record(ctx, duration.Seconds(), attrs)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		if code := core.ErrorCode(err); code != "" {
			return code
		}
		return "error"
	}
}
