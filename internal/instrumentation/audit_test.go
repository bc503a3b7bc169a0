package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTool  = "createTask"
	testOwner = "6b0f6f7e-2f57-4c55-9a49-0b7f0c1f9a11"
	testEmail = "jane@example.com"
)

func attrMap(attrs []slog.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value.String()
	}
	return m
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation(testTool)
	assert.Equal(t, testTool, ti.Tool)
	assert.False(t, ti.StartTime.IsZero())

	time.Sleep(time.Millisecond)
	ti.CompleteSuccess()

	assert.True(t, ti.Success)
	assert.Positive(t, ti.Duration)
	assert.Equal(t, StatusSuccess, ti.Status())
	assert.Empty(t, ti.Error)
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation(testTool).CompleteWithError(errors.New("No encontrada"))

	assert.False(t, ti.Success)
	assert.Equal(t, StatusError, ti.Status())
	assert.Equal(t, "No encontrada", ti.Error)
}

func TestToolInvocation_LogAttrsHashIdentity(t *testing.T) {
	ti := NewToolInvocation(testTool).
		WithOwner(testOwner, testEmail).
		WithTransport(TransportAgent).
		CompleteSuccess()

	m := attrMap(ti.LogAttrs())
	assert.Equal(t, testTool, m["tool"])
	assert.Equal(t, ti.OwnerHash(), m["owner"])
	assert.NotEqual(t, testOwner, m["owner"])
	assert.Equal(t, "example.com", m["user_domain"])
	assert.Equal(t, TransportAgent, m["transport"])
	_, hasUser := m["user"]
	assert.False(t, hasUser)
}

func TestToolInvocation_LogAuditAttrs(t *testing.T) {
	ti := NewToolInvocation(testTool).
		WithOwner(testOwner, testEmail).
		CompleteWithError(errors.New("boom"))
	ti.TraceID = "trace"
	ti.SpanID = "span"

	m := attrMap(ti.LogAuditAttrs())
	assert.Equal(t, testOwner, m["owner"])
	assert.Equal(t, testEmail, m["user"])
	assert.Equal(t, "trace", m["trace_id"])
	assert.Equal(t, "span", m["span_id"])
	assert.Equal(t, "boom", m["error"])
}

func TestToolInvocation_WithSpanContext_NoSpan(t *testing.T) {
	ti := NewToolInvocation(testTool).WithSpanContext(context.Background())
	assert.Empty(t, ti.TraceID)
	assert.Empty(t, ti.SpanID)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLogger(logger)
	al.LogToolInvocation(NewToolInvocation(testTool).WithOwner(testOwner, testEmail).CompleteSuccess())
	al.LogToolInvocation(NewToolInvocation("deleteTask").WithOwner(testOwner, "").CompleteWithError(errors.New("No encontrada")))

	out := buf.String()
	assert.Contains(t, out, "tool_executed")
	assert.Contains(t, out, "tool_failed")
	assert.NotContains(t, out, testOwner)
	assert.NotContains(t, out, testEmail)
}

func TestAuditLogger_IncludePII(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})
	al.LogToolInvocation(NewToolInvocation(testTool).WithOwner(testOwner, testEmail).CompleteSuccess())

	assert.Contains(t, buf.String(), testOwner)
	assert.Contains(t, buf.String(), testEmail)
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLoggerWithConfig(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation(testTool).CompleteSuccess())
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	require.NotPanics(t, func() { nilLogger.LogToolInvocation(NewToolInvocation(testTool)) })
}

func TestAuditLogger_NilSlogUsesDefault(t *testing.T) {
	al := NewAuditLogger(nil)
	require.NotNil(t, al)

	ti := NewToolInvocation(testTool).WithOwner(testOwner, "")
	assert.True(t, strings.HasPrefix(ti.OwnerHash(), "user:"))
	assert.Empty(t, NewToolInvocation(testTool).OwnerHash())
}
