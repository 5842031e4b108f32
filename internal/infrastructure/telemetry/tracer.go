package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing helpers for the simulation spans: one span per run, one per batch.

const tracerName = "tradesim-kernel"

// StartRunSpan starts the span covering one backtest run.
func StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "backtest.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
		))
}

// StartBatchSpan starts the span covering one streamed data batch.
func StartBatchSpan(ctx context.Context, runID string, batch int, items int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("backtest.batch.%d", batch),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("batch.number", batch),
			attribute.Int("batch.items", items),
		))
}

// WithSpanError records an error and sets the span status.
func WithSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
