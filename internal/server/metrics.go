package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/todoagent/internal/instrumentation"
)

const (
	// DefaultMetricsAddr keeps scraping off the public API port.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds graceful shutdown of every listener.
	DefaultShutdownTimeout = 30 * time.Second

	metricsTimeout     = 10 * time.Second
	metricsIdleTimeout = 60 * time.Second
)

// ErrMetricsUnavailable is returned when the provider does not export to
// Prometheus, so there is nothing to scrape.
var ErrMetricsUnavailable = errors.New("metrics server requires the prometheus exporter")

// MetricsServer exposes /metrics from the default Prometheus registry, which
// is where the OpenTelemetry prometheus exporter registers its collector.
type MetricsServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewMetricsServer returns a server bound to addr, or DefaultMetricsAddr.
func NewMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*MetricsServer, error) {
	if provider == nil || !provider.ServesPrometheus() {
		return nil, ErrMetricsUnavailable
	}
	if addr == "" {
		addr = DefaultMetricsAddr
	}
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})

	return &MetricsServer{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsTimeout,
			WriteTimeout:      metricsTimeout,
			IdleTimeout:       metricsIdleTimeout,
		},
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *MetricsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting metrics server", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(shutdownCtx)
}

// Addr returns the listen address.
func (s *MetricsServer) Addr() string {
	return s.httpServer.Addr
}
