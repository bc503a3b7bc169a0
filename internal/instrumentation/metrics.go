package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrOwner     = "owner"
	attrModel     = "model"
)

// Metrics provides methods for recording observability metrics.
// All methods are safe to call on a nil or zero-value Metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeAgentRuns     metric.Int64UpDownCounter

	// Task store metrics
	storeOperationsTotal   metric.Int64Counter
	storeOperationDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// LLM and agent loop metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram
	agentRunsTotal     metric.Int64Counter
	agentIterations    metric.Int64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

var (
	latencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5}
	remoteBuckets  = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
	llmBuckets     = []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}
)

// instrumentBuilder creates instruments on one meter and keeps the first
// error.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func (b *instrumentBuilder) fail(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
}

func (b *instrumentBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.fail(name, err)
	return c
}

func (b *instrumentBuilder) upDown(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.fail(name, err)
	return c
}

func (b *instrumentBuilder) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...))
	b.fail(name, err)
	return h
}

func (b *instrumentBuilder) count(name, desc, unit string, buckets ...float64) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(buckets...))
	b.fail(name, err)
	return h
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	b := &instrumentBuilder{meter: meter}

	m := &Metrics{
		detailedLabels: detailedLabels,

		httpRequestsTotal:   b.counter("http_requests_total", "HTTP requests served", "{request}"),
		httpRequestDuration: b.seconds("http_request_duration_seconds", "HTTP request latency", []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}),
		activeAgentRuns:     b.upDown("agent_active_runs", "Agent conversations in flight", "{run}"),

		storeOperationsTotal:   b.counter("task_store_operations_total", "Task store operations", "{operation}"),
		storeOperationDuration: b.seconds("task_store_operation_duration_seconds", "Task store operation latency", latencyBuckets),

		googleAPIOperationsTotal:   b.counter("google_api_operations_total", "Google API calls", "{operation}"),
		googleAPIOperationDuration: b.seconds("google_api_operation_duration_seconds", "Google API call latency", remoteBuckets),

		oauthAuthTotal:         b.counter("oauth_auth_total", "Google Calendar authorization attempts", "{attempt}"),
		oauthTokenRefreshTotal: b.counter("oauth_token_refresh_total", "OAuth token refresh attempts", "{attempt}"),

		toolInvocationsTotal: b.counter("tool_invocations_total", "Task tool invocations", "{invocation}"),
		toolDuration:         b.seconds("tool_duration_seconds", "Task tool latency", remoteBuckets),

		llmRequestsTotal:   b.counter("llm_requests_total", "Chat completion requests", "{request}"),
		llmRequestDuration: b.seconds("llm_request_duration_seconds", "Chat completion latency", llmBuckets),
		agentRunsTotal:     b.counter("agent_runs_total", "Agent conversations by outcome", "{run}"),
		agentIterations:    b.count("agent_iterations", "Model round-trips per agent conversation", "{iteration}", 1, 2, 3, 4),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordStoreOperation records one task store call. Operation is one of the
// Operation* constants and status one of StatusSuccess or StatusError.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.storeOperationsTotal == nil || m.storeOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.storeOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.storeOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records a calendar authorization attempt with result.
// Result should be one of: "success", "failure", "canceled"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt with result.
// Result should be one of: "success", "failure", "expired"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records a tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithOwner(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithOwner records a tool invocation including the
// caller's hashed identity when detailed labels are enabled.
func (m *Metrics) RecordToolInvocationWithOwner(ctx context.Context, toolName, status, ownerHash string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	if m.detailedLabels && ownerHash != "" {
		attrs = append(attrs, attribute.String(attrOwner, ownerHash))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLLMRequest records one chat completion round-trip.
func (m *Metrics) RecordLLMRequest(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil || m.llmRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	}

	m.llmRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.llmRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAgentRun records the outcome of one agent conversation and how many
// model round-trips it took. Result is one of the AgentResult* constants.
func (m *Metrics) RecordAgentRun(ctx context.Context, result string, iterations int) {
	if m == nil || m.agentRunsTotal == nil || m.agentIterations == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrResult, result))
	m.agentRunsTotal.Add(ctx, 1, attrs)
	m.agentIterations.Record(ctx, int64(iterations), attrs)
}

// IncrementActiveAgentRuns increments the running agent conversations gauge.
func (m *Metrics) IncrementActiveAgentRuns(ctx context.Context) {
	if m == nil || m.activeAgentRuns == nil {
		return
	}

	m.activeAgentRuns.Add(ctx, 1)
}

// DecrementActiveAgentRuns decrements the running agent conversations gauge.
func (m *Metrics) DecrementActiveAgentRuns(ctx context.Context) {
	if m == nil || m.activeAgentRuns == nil {
		return
	}

	m.activeAgentRuns.Add(ctx, -1)
}
