package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "retail-analytics"

// InitTracer installs a tracer provider that prints finished spans to w.
// The returned function flushes and shuts the provider down.
func InitTracer(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartSpan starts a span on the global provider; it is a no-op until
// InitTracer has been called.
func StartSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, operation)
	if runID := GetRunID(ctx); runID != "" {
		span.SetAttributes(attribute.String("run_id", runID))
	}
	return ctx, span
}

// FinishSpan records err on span, if any, and ends it.
func FinishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
