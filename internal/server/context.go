package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/todoagent/internal/chat"
	"github.com/teemow/todoagent/internal/database"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/tasks"
)

// ServerContext holds the long-lived dependencies shared by the HTTP API, the
// MCP transports and the agent.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	db       *database.DB
	tasks    *tasks.Store
	chat     *chat.Store
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	location *time.Location

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext
type Option func(*ServerContext)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the tool audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.audit = a }
}

// WithLocation sets the zone used for local-calendar computations.
func WithLocation(loc *time.Location) Option {
	return func(sc *ServerContext) {
		if loc != nil {
			sc.location = loc
		}
	}
}

// WithChatStore enables conversation history.
func WithChatStore(c *chat.Store) Option {
	return func(sc *ServerContext) { sc.chat = c }
}

// NewServerContext creates a server context around an opened database and
// task store.
func NewServerContext(ctx context.Context, db *database.DB, store *tasks.Store, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		db:       db,
		tasks:    store,
		logger:   slog.Default(),
		location: time.Local,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// DB returns the database handle, which may be nil in tests.
func (sc *ServerContext) DB() *database.DB {
	return sc.db
}

// Tasks returns the task store
func (sc *ServerContext) Tasks() *tasks.Store {
	return sc.tasks
}

// Chat returns the chat history store, or nil when history is disabled
func (sc *ServerContext) Chat() *chat.Store {
	return sc.chat
}

// Logger returns the logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder, which may be nil
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the tool audit logger, which may be nil
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Location returns the zone used for local-calendar computations
func (sc *ServerContext) Location() *time.Location {
	return sc.location
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
