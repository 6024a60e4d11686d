package server

import (
	"net/http"

	"github.com/gamalabdu/trash-billing/internal/handler"
	appMiddleware "github.com/gamalabdu/trash-billing/internal/middleware"
	"github.com/gamalabdu/trash-billing/internal/repository"
	"github.com/gamalabdu/trash-billing/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Billing     *service.BillingService
	Auth        *service.AuthService
	Cache       repository.CatalogCache
	RateLimiter *appMiddleware.RateLimiter
	CORSOrigins []string
	Logger      *logrus.Logger
}

// NewRouter builds the billing proxy's HTTP surface.
func NewRouter(d Deps) http.Handler {
	billingHandler := handler.NewBillingHandler(d.Billing)
	plansHandler := handler.NewPlansHandler(d.Billing)
	adminHandler := handler.NewAdminHandler(d.Billing)
	healthHandler := handler.NewHealthHandler(d.Billing, d.Cache)

	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.RequestID)
	r.Use(appMiddleware.Recovery(d.Logger))
	r.Use(appMiddleware.Logger(d.Logger))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appMiddleware.RequestIDHeader},
			ExposedHeaders:   []string{appMiddleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware())
	}

	r.Get("/health", healthHandler.Check)
	r.Get("/api/plans", plansHandler.List)

	r.Route("/api/billing", func(r chi.Router) {
		r.Get("/account", billingHandler.Account)
		r.Get("/overview", billingHandler.Overview)
		r.Post("/checkout", billingHandler.CreateCheckout)
		r.Post("/portal", billingHandler.CreatePortal)

		r.Get("/accounts/{id}/subscription", billingHandler.Subscription)
		r.Get("/accounts/{id}/charges", billingHandler.Charges)
		r.Get("/accounts/{id}/sessions", billingHandler.Sessions)
		r.Get("/accounts/{id}/purchases", billingHandler.Purchases)
	})

	// Admin routes exist only when a signing secret is configured.
	if d.Auth != nil && d.Auth.Enabled() {
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(d.Auth))
			r.Use(appMiddleware.AdminOnly)
			r.Get("/api/admin/billing/accounts/{id}/charges", adminHandler.Charges)
			r.Get("/api/admin/billing/accounts/{id}/subscriptions", adminHandler.Subscriptions)
		})
	}

	return r
}
