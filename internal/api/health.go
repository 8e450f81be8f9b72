package api

import (
	"net/http"
	"time"

	"github.com/archetype-pal/lightbox-backend/internal/api/respond"
)

// HealthHandler exposes the aggregated service health flag.
type HealthHandler struct {
	isHealthy func() bool
}

// NewHealthHandler creates a health handler over a health probe function.
// A nil probe reports unhealthy until one is bound.
func NewHealthHandler(isHealthy func() bool) *HealthHandler {
	if isHealthy == nil {
		isHealthy = func() bool { return false }
	}
	return &HealthHandler{isHealthy: isHealthy}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/unhealthy. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.isHealthy() {
		status = "healthy"
	}
	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
