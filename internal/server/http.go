package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/logging"
)

const (
	// DefaultHTTPAddr is the default address for the API server.
	DefaultHTTPAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// HTTPServer serves the API and MCP endpoints
type HTTPServer struct {
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer wraps handler with OpenTelemetry instrumentation.
func NewHTTPServer(addr string, handler http.Handler, logger *slog.Logger) *HTTPServer {
	if addr == "" {
		addr = DefaultHTTPAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPServer{
		addr:   addr,
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           otelhttp.NewHandler(handler, "todoagent.http"),
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
	}
}

// Start serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteError maps err to a status and writes {"error": message}.
// Unclassified errors are logged and reported as "Error interno".
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", logging.Err(err))
	}
	WriteJSON(w, status, ErrorBody{Error: apperrors.Message(err)})
}

// WriteErrorMessage writes {"error": message} with status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}
