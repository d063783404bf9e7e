// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Probe is a named dependency checked by /readyz. A failing Optional probe
// is reported but leaves the instance ready.
type Probe struct {
	Name     string
	Checker  Checker
	Optional bool
}

type Handler struct {
	probes   []Probe
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(probes ...Probe) *Handler {
	h := &Handler{probes: probes}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}
	writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// Readiness fails while draining, before startup finished, or when a
// required probe fails.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	case !h.ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "not_ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runProbes(ctx)

	status, code := "ok", http.StatusOK
	for _, check := range checks {
		if !check.Healthy && check.Critical {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	writeStatus(w, code, ReadinessResponse{Status: status, Checks: checks})
}

func (h *Handler) runProbes(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.probes))

	var wg sync.WaitGroup
	for i, probe := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = runProbe(ctx, probe)
		}()
	}
	wg.Wait()

	return checks
}

func runProbe(ctx context.Context, probe Probe) HealthCheck {
	check := HealthCheck{Name: probe.Name, Healthy: true, Critical: !probe.Optional}

	if probe.Checker == nil {
		check.Healthy = false
		check.Message = probe.Name + " checker not configured"
		return check
	}

	start := time.Now()
	err := probe.Checker.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}

	return check
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Critical bool   `json:"critical"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
