package handler

import (
	"net/http"

	"github.com/gamalabdu/trash-billing/internal/contextkeys"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// AdminHandler exposes the unfiltered billing views to operators.
type AdminHandler struct {
	svc *service.BillingService
}

func NewAdminHandler(svc *service.BillingService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Charges handles GET /api/admin/billing/accounts/{id}/charges?status=.
// Unlike the public route it accepts any status filter, including "all".
func (h *AdminHandler) Charges(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	status := r.URL.Query().Get("status")

	charges, err := h.svc.ListCharges(r.Context(), accountID, status)
	if err != nil {
		Error(w, err)
		return
	}

	log.WithFields(log.Fields{
		"admin":      r.Context().Value(contextkeys.UserID),
		"account_id": accountID,
		"status":     status,
	}).Info("admin charge listing")
	JSON(w, http.StatusOK, charges)
}

// Subscriptions handles GET /api/admin/billing/accounts/{id}/subscriptions.
// It returns every record the current-subscription selection considers.
func (h *AdminHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.AllSubscriptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, subs)
}
