package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const readinessTimeout = 3 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependency is one named readiness check.
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	deps   []Dependency
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. A dependency with a nil
// Checker is reported as "not configured" and does not fail readiness.
func NewHealthHandler(logger *slog.Logger, deps ...Dependency) *HealthHandler {
	return &HealthHandler{
		deps:   deps,
		logger: logger.With("component", "handler.health"),
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe. It never checks dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz pings every dependency concurrently and returns 200 only when
// all configured ones answer.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make([]string, len(h.deps))
	var wg sync.WaitGroup
	for i, dep := range h.deps {
		if dep.Checker == nil {
			results[i] = "not configured"
			continue
		}
		wg.Add(1)
		go func(i int, dep Dependency) {
			defer wg.Done()
			if err := dep.Checker.Ping(ctx); err != nil {
				// Driver errors can carry hostnames; keep them in the log only.
				h.logger.Warn("readiness check failed", "dependency", dep.Name, "error", err)
				results[i] = "unavailable"
				return
			}
			results[i] = "ok"
		}(i, dep)
	}
	wg.Wait()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.deps))}
	code := http.StatusOK
	for i, dep := range h.deps {
		resp.Checks[dep.Name] = results[i]
		if results[i] == "unavailable" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}
