package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span this module starts.
const TracerName = "github.com/teemow/todoagent"

// Span attribute keys.
const (
	SpanAttrTool      = "todo.tool"
	SpanAttrService   = "todo.service"
	SpanAttrOperation = "todo.operation"
	SpanAttrModel     = "llm.model"
	SpanAttrIteration = "agent.iteration"
)

// startSpan uses the global tracer provider, a no-op until NewProvider
// installs one.
func startSpan(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}

// StartToolSpan starts the server span of one tool call, named tool.<name>.
func StartToolSpan(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return startSpan(ctx, "tool."+toolName, trace.SpanKindServer,
		attribute.String(SpanAttrTool, toolName))
}

// StartStoreSpan starts a span around one task store operation.
func StartStoreSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return startSpan(ctx, "store."+operation, trace.SpanKindClient,
		attribute.String(SpanAttrService, "store"),
		attribute.String(SpanAttrOperation, operation))
}

// StartLLMSpan starts a span for one chat completion round-trip.
func StartLLMSpan(ctx context.Context, model string, iteration int) (context.Context, trace.Span) {
	return startSpan(ctx, "llm.chat_completion", trace.SpanKindClient,
		attribute.String(SpanAttrModel, model),
		attribute.Int(SpanAttrIteration, iteration))
}

// StartGoogleAPISpan starts a span named google.<service>.<operation>.
func StartGoogleAPISpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return startSpan(ctx, "google."+service+"."+operation, trace.SpanKindClient,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation))
}

// SetSpanError records err and marks the span failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
