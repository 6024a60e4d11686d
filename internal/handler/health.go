package handler

import (
	"net/http"

	"github.com/gamalabdu/trash-billing/internal/repository"
	"github.com/gamalabdu/trash-billing/internal/service"
)

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	billing *service.BillingService
	cache   repository.CatalogCache
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(billing *service.BillingService, cache repository.CatalogCache) *HealthHandler {
	return &HealthHandler{billing: billing, cache: cache}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status": "ok",
	}

	// Check cache
	if err := h.cache.Ping(ctx); err != nil {
		status["cache"] = "error"
		status["status"] = "degraded"
	} else {
		status["cache"] = "ok"
	}

	// Check processor
	if err := h.billing.Ping(ctx); err != nil {
		status["processor"] = "error"
		status["status"] = "degraded"
	} else {
		status["processor"] = "ok"
	}

	code := http.StatusOK
	if status["status"] == "degraded" {
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
