package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "relembraq.pipeline"

// WithTracerProvider records stage spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		if tp != nil {
			p.tracer = tp.Tracer(tracerName)
		}
	}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startStage opens a span for one stage. The returned func ends it and marks
// it failed when err is non-nil.
func (p *Pipeline) startStage(
	ctx context.Context,
	stage string,
	attrs ...attribute.KeyValue,
) (context.Context, func(err error)) {
	ctx, span := p.tracer.Start(ctx, tracerName+"."+stage, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
