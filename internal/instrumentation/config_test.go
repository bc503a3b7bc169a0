package instrumentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg := ConfigFromEnv(mapEnv(nil))

	assert.Equal(t, "todoagent", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, ExporterPrometheus, cfg.MetricsExporter)
	assert.Equal(t, ExporterNone, cfg.TracingExporter)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
	assert.Equal(t, DefaultMetricInterval, cfg.MetricInterval)
	assert.False(t, cfg.DetailedLabels)
	assert.True(t, cfg.AuditLogging.Enabled)
	assert.False(t, cfg.AuditLogging.IncludePII)
	assert.Empty(t, cfg.InstanceID)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	cfg := ConfigFromEnv(mapEnv(map[string]string{
		"OTEL_SERVICE_NAME":           "todo-staging",
		"HOSTNAME":                    "todoagent-7f9c",
		"POD_NAMESPACE":               "todo",
		"METRICS_EXPORTER":            "OTLP",
		"TRACING_EXPORTER":            "otlp",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
		"OTEL_EXPORTER_OTLP_INSECURE": "true",
		"OTEL_TRACES_SAMPLER_ARG":     "0.5",
		"OTEL_METRIC_EXPORT_INTERVAL": "30s",
		"METRICS_DETAILED_LABELS":     "1",
		"AUDIT_LOGGING_INCLUDE_PII":   "true",
	}))

	assert.Equal(t, "todo-staging", cfg.ServiceName)
	assert.Equal(t, "todoagent-7f9c", cfg.InstanceID)
	assert.Equal(t, "todo", cfg.Namespace)
	assert.Equal(t, ExporterOTLP, cfg.MetricsExporter)
	assert.Equal(t, ExporterOTLP, cfg.TracingExporter)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.InDelta(t, 0.5, cfg.TraceSamplingRate, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.MetricInterval)
	assert.True(t, cfg.DetailedLabels)
	assert.True(t, cfg.AuditLogging.IncludePII)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromEnv_Fallbacks(t *testing.T) {
	cfg := ConfigFromEnv(mapEnv(map[string]string{
		"OTEL_SERVICE_INSTANCE_ID":    "explicit",
		"HOSTNAME":                    "ignored",
		"K8S_NAMESPACE":               "primary",
		"POD_NAMESPACE":               "ignored",
		"INSTRUMENTATION_ENABLED":     "not-a-bool",
		"OTEL_TRACES_SAMPLER_ARG":     "often",
		"OTEL_METRIC_EXPORT_INTERVAL": "5000",
	}))

	assert.Equal(t, "explicit", cfg.InstanceID)
	assert.Equal(t, "primary", cfg.Namespace)
	assert.True(t, cfg.Enabled)
	assert.InDelta(t, 0.1, cfg.TraceSamplingRate, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.MetricInterval)
}

func TestConfigFromEnv_InvalidInterval(t *testing.T) {
	for _, raw := range []string{"-1s", "0", "soon"} {
		cfg := ConfigFromEnv(mapEnv(map[string]string{"OTEL_METRIC_EXPORT_INTERVAL": raw}))
		assert.Equal(t, DefaultMetricInterval, cfg.MetricInterval, raw)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "disabled ignores everything", mutate: func(c *Config) {
			c.Enabled = false
			c.MetricsExporter = "graphite"
			c.TraceSamplingRate = 7
		}},
		{name: "otlp with endpoint", mutate: func(c *Config) {
			c.MetricsExporter = ExporterOTLP
			c.TracingExporter = ExporterOTLP
			c.OTLPEndpoint = "collector:4318"
		}},
		{name: "negative sampling", mutate: func(c *Config) { c.TraceSamplingRate = -0.5 }, wantErr: "sampling rate"},
		{name: "sampling above one", mutate: func(c *Config) { c.TraceSamplingRate = 1.5 }, wantErr: "sampling rate"},
		{name: "unknown metrics exporter", mutate: func(c *Config) { c.MetricsExporter = "graphite" }, wantErr: "invalid metrics exporter"},
		{name: "unknown tracing exporter", mutate: func(c *Config) { c.TracingExporter = "zipkin" }, wantErr: "invalid tracing exporter"},
		{name: "otlp metrics without endpoint", mutate: func(c *Config) { c.MetricsExporter = ExporterOTLP }, wantErr: "OTLP endpoint"},
		{name: "otlp traces without endpoint", mutate: func(c *Config) { c.TracingExporter = ExporterOTLP }, wantErr: "OTLP endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
