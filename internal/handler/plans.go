package handler

import (
	"net/http"

	"github.com/gamalabdu/trash-billing/internal/service"
)

// PlansHandler handles plan-related endpoints.
type PlansHandler struct {
	svc *service.BillingService
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(svc *service.BillingService) *PlansHandler {
	return &PlansHandler{svc: svc}
}

// List handles GET /api/plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.ListPlans(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, plans)
}
