// Package instrumentation provides OpenTelemetry instrumentation for the
// todoagent server.
//
// # Metrics
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - agent_active_runs: Gauge of agent conversations in flight
//
// Task Store Metrics:
//   - task_store_operations_total: Counter of store operations by operation and status
//   - task_store_operation_duration_seconds: Histogram of store operation durations
//
// Google Calendar Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//   - oauth_auth_total: Counter of calendar authorization callbacks by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Tool and Agent Metrics:
//   - tool_invocations_total / tool_duration_seconds: task tool calls by tool and status
//   - llm_requests_total / llm_request_duration_seconds: chat completion round-trips by model
//   - agent_runs_total / agent_iterations: conversation outcomes and round-trips per run
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), store operations
// (store.<operation>), chat completions (llm.chat_completion) and Google API
// calls (google.<service>.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: todoagent)
//   - OTEL_METRIC_EXPORT_INTERVAL: push interval for otlp and stdout metrics
//   - METRICS_DETAILED_LABELS: add hashed owners to tool metrics
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: tool audit log
//
// The stdout exporters write to stderr.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordStoreOperation(ctx, instrumentation.OperationSearch, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
