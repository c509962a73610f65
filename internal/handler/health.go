package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// readinessTimeout bounds all dependency pings of one /readyz call.
const readinessTimeout = 5 * time.Second

// Check states reported by /readyz.
const (
	checkOK            = "ok"
	checkError         = "error"
	checkNotConfigured = "not configured"
)

// HealthChecker is anything /readyz can ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name    string
	checker HealthChecker
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps   []dependency
	logger *slog.Logger
}

// NewHealthHandler probes postgres and redis. A nil checker is reported as
// not configured and does not fail readiness.
func NewHealthHandler(db, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		deps:   []dependency{{"postgres", db}, {"redis", cache}},
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used to report failing checks.
func (h *HealthHandler) WithLogger(logger *slog.Logger) *HealthHandler {
	h.logger = logger
	return h
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz handles GET /healthz. It never touches dependencies.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: checkOK})
}

// Readyz handles GET /readyz, pinging every dependency concurrently.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		if dep.checker == nil {
			results[i] = checkNotConfigured
			continue
		}
		g.Go(func() error {
			if err := dep.checker.Ping(ctx); err != nil {
				// Errors can embed connection strings; keep them out of the body.
				h.logger.Warn("readiness check failed",
					slog.String("dependency", dep.name),
					slog.String("error", err.Error()),
				)
				results[i] = checkError
				return nil
			}
			results[i] = checkOK
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: checkOK, Checks: make(map[string]string, len(h.deps))}
	status := http.StatusOK
	for i, dep := range h.deps {
		resp.Checks[dep.name] = results[i]
		if results[i] == checkError {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
