package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnreachable  = "unreachable"
)

// databasePingTimeout bounds the readiness database check.
const databasePingTimeout = 2 * time.Second

// HealthChecker serves the liveness and readiness probes. Readiness fails
// while draining, after the server context shut down, or when the database
// stops answering pings.
type HealthChecker struct {
	ready   atomic.Bool
	sc      *ServerContext
	started time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness; serve clears it before draining connections.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the flag set by SetReady.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of every probe.
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// RegisterHealthEndpoints mounts /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler always answers ok while the process can serve HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler reports each check and answers 503 if any fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.runChecks(r.Context())
		h.write(w, HealthResponse{Checks: checks}, ok)
	})
}

// DetailedHealthHandler adds uptime to the readiness result.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.runChecks(r.Context())
		h.write(w, HealthResponse{
			Uptime: time.Since(h.started).Truncate(time.Second).String(),
			Checks: checks,
		}, ok)
	})
}

func (h *HealthChecker) write(w http.ResponseWriter, resp HealthResponse, ok bool) {
	if ok {
		resp.Status = healthStatusOK
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	resp.Status = healthStatusNotReady
	WriteJSON(w, http.StatusServiceUnavailable, resp)
}

func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	if h.sc != nil && h.sc.DB() != nil {
		pingCtx, cancel := context.WithTimeout(ctx, databasePingTimeout)
		defer cancel()
		if err := h.sc.DB().PingContext(pingCtx); err != nil {
			checks["database"] = healthStatusUnreachable
			ok = false
		} else {
			checks["database"] = healthStatusOK
		}
	}
	return checks, ok
}
