package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/server"
	"github.com/teemow/todoagent/internal/tasks"
)

const maxBodyBytes = 1 << 20

// Config wires the handler's collaborators. Only Verifier is required.
type Config struct {
	// Agent is nil when no LLM key is configured
	Agent    *agent.Agent
	Verifier *auth.Verifier

	// Calendar inserts events for the add-event endpoint
	Calendar tasks.Scheduler
	Google   google.Config
	States   *google.StateSigner
	Tokens   google.TokenStore

	// MCP is the streamable HTTP MCP handler mounted at /mcp
	MCP    http.Handler
	Health *server.HealthChecker

	// CORSOrigins is a comma separated allow list, or "*"
	CORSOrigins string
	// RateLimit is the number of requests per minute per client IP; zero
	// disables limiting
	RateLimit int
}

// Handler serves the HTTP API
type Handler struct {
	sc  *server.ServerContext
	cfg Config
}

// New creates the API handler.
func New(sc *server.ServerContext, cfg Config) *Handler {
	return &Handler{sc: sc, cfg: cfg}
}

// Routes returns the complete HTTP handler.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	authed := h.cfg.Verifier.Middleware

	h.handle(mux, "POST /api/agent", authed(http.HandlerFunc(h.handleAgent)))
	h.handle(mux, "GET /api/agent/history", authed(http.HandlerFunc(h.handleHistory)))
	h.handle(mux, "DELETE /api/agent/history", authed(http.HandlerFunc(h.handleDeleteHistory)))

	h.handle(mux, "GET /api/tasks", authed(http.HandlerFunc(h.handleListTasks)))
	h.handle(mux, "POST /api/tasks", authed(http.HandlerFunc(h.handleCreateTask)))
	h.handle(mux, "PATCH /api/tasks", authed(http.HandlerFunc(h.handleUpdateTask)))
	h.handle(mux, "DELETE /api/tasks", authed(http.HandlerFunc(h.handleDeleteTask)))

	h.handle(mux, "GET /api/folders", authed(http.HandlerFunc(h.handleListFolders)))
	h.handle(mux, "POST /api/folders", authed(http.HandlerFunc(h.handleCreateFolder)))
	h.handle(mux, "PATCH /api/folders", authed(http.HandlerFunc(h.handleUpdateFolder)))
	h.handle(mux, "DELETE /api/folders", authed(http.HandlerFunc(h.handleDeleteFolder)))

	h.handle(mux, "POST /api/calendar/url", http.HandlerFunc(h.handleCalendarURL))
	h.handle(mux, "POST /api/google-calendar/add-event", authed(http.HandlerFunc(h.handleAddEvent)))
	h.handle(mux, "GET /api/google-calendar/auth", authed(http.HandlerFunc(h.handleGoogleAuth)))
	h.handle(mux, "GET /api/google-calendar/callback", http.HandlerFunc(h.handleGoogleCallback))

	if h.cfg.MCP != nil {
		h.handle(mux, "/mcp", authed(h.cfg.MCP))
	}

	health := h.cfg.Health
	if health == nil {
		health = server.NewHealthChecker(h.sc)
	}
	health.RegisterHealthEndpoints(mux)

	mws := []server.Middleware{server.CORS(h.cfg.CORSOrigins)}
	if h.cfg.RateLimit > 0 {
		mws = append(mws, server.RateLimit(h.cfg.RateLimit, time.Minute))
	}
	return server.Chain(mws...)(mux)
}

// handle registers next under pattern and records request metrics labelled
// with the pattern.
func (h *Handler) handle(mux *http.ServeMux, pattern string, next http.Handler) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, pattern, rec.status, time.Since(start))
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var errBadFormat = apperrors.Validation("", "Formato inválido")

// decodeBody reads a JSON object body into dst.
func decodeBody(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return errBadFormat
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	server.WriteError(w, h.sc.Logger(), err)
}
