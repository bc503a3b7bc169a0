package instrumentation

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Exporter types
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the push interval of the OTLP and stdout metric
// readers. Prometheus is pull based and ignores it.
const DefaultMetricInterval = 10 * time.Second

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: todoagent)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// InstanceID identifies this process; defaults to the hostname, which is
	// the pod name on Kubernetes
	InstanceID string

	// Namespace is the deployment namespace, recorded when set
	Namespace string

	// Enabled determines if instrumentation is active (default: true)
	Enabled bool

	// MetricsExporter is one of prometheus (default), otlp or stdout
	MetricsExporter string

	// TracingExporter is one of none (default), otlp or stdout
	TracingExporter string

	// OTLPEndpoint is the collector host:port, without scheme
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1] (default: 0.1)
	TraceSamplingRate float64

	// MetricInterval is the push interval for otlp and stdout metrics
	MetricInterval time.Duration

	// DetailedLabels adds hashed owner labels to tool metrics. Keep it off in
	// production; every owner becomes a new series.
	DetailedLabels bool

	// AuditLogging configures the tool audit log.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII logs raw owner ids and emails instead of their hashes.
	IncludePII bool
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from getenv. Unparseable values fall back to
// their defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	env := envReader(getenv)

	return Config{
		ServiceName:       env.str("OTEL_SERVICE_NAME", "todoagent"),
		ServiceVersion:    "unknown",
		InstanceID:        env.str("OTEL_SERVICE_INSTANCE_ID", env.str("HOSTNAME", "")),
		Namespace:         env.str("K8S_NAMESPACE", env.str("POD_NAMESPACE", "")),
		Enabled:           env.boolean("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   strings.ToLower(env.str("METRICS_EXPORTER", ExporterPrometheus)),
		TracingExporter:   strings.ToLower(env.str("TRACING_EXPORTER", ExporterNone)),
		OTLPEndpoint:      env.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      env.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: env.float("OTEL_TRACES_SAMPLER_ARG", 0.1),
		MetricInterval:    env.duration("OTEL_METRIC_EXPORT_INTERVAL", DefaultMetricInterval),
		DetailedLabels:    env.boolean("METRICS_DETAILED_LABELS", false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.boolean("AUDIT_LOGGING_INCLUDE_PII", false),
		},
	}
}

// Validate checks if the configuration is valid. A disabled configuration is
// always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp metrics exporter; set OTEL_EXPORTER_OTLP_ENDPOINT or use prometheus")
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp tracing exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	return nil
}

type envReader func(string) string

func (e envReader) str(key, def string) string {
	if v := strings.TrimSpace(e(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) boolean(key string, def bool) bool {
	if parsed, err := strconv.ParseBool(e.str(key, "")); err == nil {
		return parsed
	}
	return def
}

func (e envReader) float(key string, def float64) float64 {
	if parsed, err := strconv.ParseFloat(e.str(key, ""), 64); err == nil {
		return parsed
	}
	return def
}

// duration accepts Go durations ("15s") and, like the OpenTelemetry
// environment variables, plain milliseconds.
func (e envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
