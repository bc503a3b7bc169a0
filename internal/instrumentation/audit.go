package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/todoagent/internal/logging"
)

// Transports a tool can be invoked through.
const (
	TransportAgent = "agent"
	TransportMCP   = "mcp"
)

// ToolInvocation is one audited tool call.
//
// Owner and UserEmail identify a person. Operational logs carry only the
// owner hash and the email domain; the raw values are written only by an
// audit logger configured with IncludePII.
type ToolInvocation struct {
	Tool      string
	Owner     string
	UserEmail string
	Transport string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation starts the clock for tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{Tool: tool, StartTime: time.Now()}
}

// WithOwner sets the caller identity.
func (ti *ToolInvocation) WithOwner(owner, email string) *ToolInvocation {
	ti.Owner, ti.UserEmail = owner, email
	return ti
}

// WithTransport records whether the call came from the agent loop or MCP.
func (ti *ToolInvocation) WithTransport(transport string) *ToolInvocation {
	ti.Transport = transport
	return ti
}

// WithSpanContext copies trace and span ids from the span in ctx, if any.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

// Complete stops the clock.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// UserDomain is the email domain, "unknown" when there is no email.
func (ti *ToolInvocation) UserDomain() string {
	return ExtractUserDomain(ti.UserEmail)
}

// OwnerHash is the owner as it appears in logs and metric labels.
func (ti *ToolInvocation) OwnerHash() string {
	return logging.HashID(ti.Owner)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes for operational logs. Identities are hashed.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	return ti.attrs(false)
}

// LogAuditAttrs returns the attributes for the audit log, with the raw owner
// id and email. Only use it for sinks with restricted access.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	return ti.attrs(true)
}

func (ti *ToolInvocation) attrs(pii bool) []slog.Attr {
	owner := ti.OwnerHash()
	if pii {
		owner = ti.Owner
	}
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.String("owner", owner),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	optional := []struct{ key, value string }{
		{"transport", ti.Transport},
		{"trace_id", ti.TraceID},
		{"span_id", ti.SpanID},
		{"error", ti.Error},
	}
	switch {
	case ti.UserEmail == "":
	case pii:
		attrs = append(attrs, slog.String("user", ti.UserEmail))
	default:
		attrs = append(attrs, slog.String("user_domain", ti.UserDomain()))
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	return attrs
}

// AuditLogger writes one record per tool call. A nil AuditLogger is a no-op.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger returns an enabled audit logger that hashes identities.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig returns an audit logger honoring config.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation writes ti at info level on success and warn on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	level, msg := slog.LevelInfo, "tool_executed"
	if !ti.Success {
		level, msg = slog.LevelWarn, "tool_failed"
	}
	al.logger.LogAttrs(context.Background(), level, msg, ti.attrs(al.includePII)...)
}
