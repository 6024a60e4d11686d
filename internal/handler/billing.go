package handler

import (
	"net/http"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/go-chi/chi/v5"
)

// BillingHandler serves the billing proxy endpoints.
type BillingHandler struct {
	svc *service.BillingService
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc *service.BillingService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// Account handles GET /api/billing/account?email=.
func (h *BillingHandler) Account(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.ResolveAccount(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, account)
}

// Subscription handles GET /api/billing/accounts/{id}/subscription.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.CurrentSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	if sub == nil {
		Error(w, domain.ErrNotFound("no current subscription"))
		return
	}
	JSON(w, http.StatusOK, sub)
}

// Charges handles GET /api/billing/accounts/{id}/charges. The public route
// only ever lists succeeded charges.
func (h *BillingHandler) Charges(w http.ResponseWriter, r *http.Request) {
	charges, err := h.svc.ListCharges(r.Context(), chi.URLParam(r, "id"), domain.ChargeSucceeded)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, charges)
}

// Sessions handles GET /api/billing/accounts/{id}/sessions.
func (h *BillingHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListPaymentSessions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, sessions)
}

// Purchases handles GET /api/billing/accounts/{id}/purchases.
func (h *BillingHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.PurchaseHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, purchases)
}

// Overview handles GET /api/billing/overview?email=.
func (h *BillingHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.svc.Overview(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, ov)
}

// CreateCheckout handles POST /api/billing/checkout.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreateCheckout(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// CreatePortal handles POST /api/billing/portal.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	var req domain.PortalRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreatePortalSession(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}
