package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "shopforge"

// StartUpstreamSpan starts a client span for a remote API operation.
func StartUpstreamSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.service", service),
			attribute.String("upstream.operation", operation),
		),
	)
}

// StartBatchSpan starts a span covering one batch optimization job.
func StartBatchSpan(ctx context.Context, jobID string, products int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "seo.batch",
		trace.WithAttributes(
			attribute.String("batch.id", jobID),
			attribute.Int("batch.products", products),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
