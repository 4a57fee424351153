package summary

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/relembraq/relembraq/engine/infra/monitoring/metrics"
	"github.com/relembraq/relembraq/pkg/logger"
)

const meterName = "relembraq.summary"

var (
	metricsOnce    sync.Once
	metricsInitErr error
	errorLogOnce   sync.Once
	chunksTotal    metric.Int64Counter
	recordsTotal   metric.Int64Counter
)

func recordChunk(ctx context.Context, reply ReplyKind, resumed bool, records int) {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		var err error
		chunksTotal, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("summary", "chunks_total"),
			metric.WithDescription("Chunks summarized by reply kind"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create chunks counter: %w", err)
			return
		}
		recordsTotal, err = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("summary", "records_total"),
			metric.WithDescription("Summary records produced"),
			metric.WithUnit("1"),
		)
		if err != nil {
			metricsInitErr = fmt.Errorf("create records counter: %w", err)
		}
	})
	if metricsInitErr != nil {
		errorLogOnce.Do(func() {
			logger.FromContext(ctx).Error("summary metrics disabled", "error", metricsInitErr)
		})
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("reply", reply.String()),
		attribute.Bool("resumed", resumed),
	)
	chunksTotal.Add(ctx, 1, attrs)
	recordsTotal.Add(ctx, int64(records), attrs)
}
