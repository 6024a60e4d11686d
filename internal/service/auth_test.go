package service

import (
	"testing"
	"time"

	"github.com/gamalabdu/trash-billing/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret")

	token, err := auth.IssueToken("ops@trash.example.com", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@trash.example.com", claims.Sub)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestAuthService_RejectsWrongSecret(t *testing.T) {
	token, err := NewAuthService("one").IssueToken("x", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService("two").VerifyToken(token)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestAuthService_RejectsExpired(t *testing.T) {
	auth := NewAuthService("test-secret")
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := auth.IssueToken("x", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.VerifyToken(token)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}

func TestAuthService_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x", "role": domain.RoleAdmin})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewAuthService("test-secret").VerifyToken(signed)
	assert.Error(t, err)
}

func TestAuthService_Disabled(t *testing.T) {
	auth := NewAuthService("")
	assert.False(t, auth.Enabled())

	_, err := auth.IssueToken("x", domain.RoleAdmin, time.Hour)
	assert.True(t, domain.IsConfiguration(err))

	_, err = auth.VerifyToken("anything")
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
}
