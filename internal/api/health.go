package api

import (
	"net/http"
	"time"

	respond "github.com/isaac-evs/side-b/internal/api/respond"
	"github.com/isaac-evs/side-b/internal/metrics"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	serviceHealthy func() bool
	stores         StoreHealth
	metrics        *metrics.Metrics
}

func NewHealthHandler(serviceHealthy func() bool, stores StoreHealth, m *metrics.Metrics) *HealthHandler {
	if serviceHealthy == nil {
		serviceHealthy = func() bool { return true }
	}
	return &HealthHandler{serviceHealthy: serviceHealthy, stores: stores, metrics: m}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy and a per-store map. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.serviceHealthy() {
		status = "healthy"
	}
	storesUp := map[string]bool{}
	if h.stores != nil {
		storesUp = h.stores.HealthCheckAll(r.Context())
		h.metrics.StoreHealth(storesUp)
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"stores":    storesUp,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
