package monitoring

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/relembraq/relembraq/engine/infra/monitoring/metrics"
	"github.com/relembraq/relembraq/pkg/logger"
	"github.com/relembraq/relembraq/pkg/version"
)

// InitSystemMetrics records build information on meter.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	log := logger.FromContext(ctx)
	buildInfo, err := meter.Float64Gauge(
		monitoringmetrics.MetricName("build_info"),
		metric.WithDescription("Build information (value=1)"),
	)
	if err != nil {
		log.Error("Failed to create build info gauge", "error", err)
		return
	}
	info := version.Get()
	buildInfo.Record(ctx, 1,
		metric.WithAttributes(
			attribute.String("version", info.Version),
			attribute.String("commit_hash", info.CommitHash),
			attribute.String("go_version", info.GoVersion),
		),
	)
	log.Debug("System metrics initialized", "version", info.Version, "commit", info.CommitHash)
}
