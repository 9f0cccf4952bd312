package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/ahmetcoskunkizilkaya/modqueue/internal/services")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan marks storage faults as span errors. Named engine outcomes are
// recorded as events so conflicts do not show up as failures.
func endSpan(span trace.Span, err error) {
	if err != nil {
		if isEngineError(err) {
			span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", err.Error())))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
