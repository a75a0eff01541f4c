package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fastmcp-me/mcp-image/operation"
)

// tracerName is the instrumentation scope name for orchestration tracing.
const tracerName = "github.com/fastmcp-me/mcp-image"

// Tracing returns middleware that wraps operation execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: mcpimage.operation.id, mcpimage.operation.name,
// mcpimage.operation.priority, mcpimage.session.id. On error, the span
// status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, op *operation.Operation, next Handler) error {
		ctx, span := tracer.Start(ctx, "mcpimage.operation.execute",
			trace.WithAttributes(
				attribute.String("mcpimage.operation.id", op.ID.String()),
				attribute.String("mcpimage.operation.name", op.Name),
				attribute.String("mcpimage.operation.priority", op.Priority.String()),
				attribute.String("mcpimage.session.id", op.SessionID.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
