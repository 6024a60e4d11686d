package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gamalabdu/trash-billing/internal/contextkeys"
	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/gamalabdu/trash-billing/internal/handler"
	"github.com/gamalabdu/trash-billing/internal/service"
)

// Auth creates a JWT authentication middleware.
func Auth(authSvc *service.AuthService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				handler.Error(w, domain.ErrUnauthorized("no token provided"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				handler.Error(w, domain.ErrUnauthorized("invalid authorization header"))
				return
			}

			claims, err := authSvc.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil {
				handler.Error(w, err)
				return
			}

			// Store admin info in context using typed keys
			ctx := context.WithValue(r.Context(), contextkeys.UserID, claims.Sub)
			ctx = context.WithValue(ctx, contextkeys.UserRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
