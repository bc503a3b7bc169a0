package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the duration of t.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestStartSpans(t *testing.T) {
	recorder := recordSpans(t)
	ctx := context.Background()

	tests := []struct {
		start func() trace.Span
		name  string
		kind  trace.SpanKind
		attrs map[attribute.Key]string
	}{
		{
			start: func() trace.Span { _, s := StartToolSpan(ctx, "searchTasks"); return s },
			name:  "tool.searchTasks",
			kind:  trace.SpanKindServer,
			attrs: map[attribute.Key]string{SpanAttrTool: "searchTasks"},
		},
		{
			start: func() trace.Span { _, s := StartStoreSpan(ctx, OperationBulkDelete); return s },
			name:  "store.bulk_delete",
			kind:  trace.SpanKindClient,
			attrs: map[attribute.Key]string{SpanAttrService: "store", SpanAttrOperation: OperationBulkDelete},
		},
		{
			start: func() trace.Span { _, s := StartGoogleAPISpan(ctx, ServiceCalendar, OperationCreate); return s },
			name:  "google.calendar.create",
			kind:  trace.SpanKindClient,
			attrs: map[attribute.Key]string{SpanAttrService: ServiceCalendar, SpanAttrOperation: OperationCreate},
		},
		{
			start: func() trace.Span { _, s := StartLLMSpan(ctx, "anthropic/claude-3-haiku", 2); return s },
			name:  "llm.chat_completion",
			kind:  trace.SpanKindClient,
			attrs: map[attribute.Key]string{SpanAttrModel: "anthropic/claude-3-haiku"},
		},
	}

	for _, tt := range tests {
		tt.start().End()
	}

	ended := recorder.Ended()
	require.Len(t, ended, len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, ended[i].Name())
			assert.Equal(t, tt.kind, ended[i].SpanKind())
			got := spanAttrs(ended[i])
			for k, v := range tt.attrs {
				assert.Equal(t, v, got[k].AsString(), string(k))
			}
		})
	}
	assert.EqualValues(t, 2, spanAttrs(ended[3])[SpanAttrIteration].AsInt64())
}

func TestSpanStatus(t *testing.T) {
	recorder := recordSpans(t)
	ctx := context.Background()

	_, failed := StartStoreSpan(ctx, OperationCreate)
	SetSpanError(failed, errors.New("constraint violated"))
	failed.End()

	_, ok := StartStoreSpan(ctx, OperationCreate)
	SetSpanError(ok, nil)
	SetSpanSuccess(ok)
	ok.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)

	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "constraint violated", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)

	assert.Equal(t, codes.Ok, ended[1].Status().Code)
	assert.Empty(t, ended[1].Events())
}

func TestToolInvocation_WithSpanContext(t *testing.T) {
	recordSpans(t)
	ctx, span := StartToolSpan(context.Background(), "createTask")
	defer span.End()

	ti := NewToolInvocation("createTask").WithSpanContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), ti.TraceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), ti.SpanID)
}
