package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/courtside/internal/realtime"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing dependency.
type HealthCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler reports liveness plus realtime and WebSocket counters.
type HealthHandler struct {
	rt     *realtime.Service
	hub    *Hub
	checks []HealthCheck
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(rt *realtime.Service, hub *Hub, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{rt: rt, hub: hub, checks: checks}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", c.Name).Msg("Health check failed")
			deps[c.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[c.Name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":       status,
		"dependencies": deps,
		"matches":      h.rt.MatchCount(),
		"connections":  h.hub.ConnectionCount(),
	})
}
