package service

import (
	"fmt"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies the bearer tokens that guard admin billing routes.
type AuthService struct {
	jwtSecret string
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: jwtSecret, now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (s *AuthService) Enabled() bool {
	return s.jwtSecret != ""
}

// IssueToken signs a token for sub with the given role.
func (s *AuthService) IssueToken(sub, role string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", domain.ErrConfiguration("JWT_SECRET is not set")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", domain.ErrInternal("failed to sign token", err)
	}
	return signed, nil
}

// VerifyToken validates a JWT token and returns the claims.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.AdminClaims, error) {
	if !s.Enabled() {
		return nil, domain.ErrUnauthorized("admin access is disabled")
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	return &domain.AdminClaims{
		Sub:  getClaimString(claims, "sub"),
		Role: getClaimString(claims, "role"),
	}, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
